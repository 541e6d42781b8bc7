package listing

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/menta2k/listingkit/internal/utils"
	"github.com/menta2k/listingkit/pkg/processing"
)

// DescriptionFile is the name of the listing text inside a project folder
const DescriptionFile = "description.txt"

// ExportOptions control SaveProjectOutput
type ExportOptions struct {
	Prefix   string
	Format   string // png (default), webp or jpg
	Quality  int
	Lossless bool
	Now      time.Time
}

// ExportResult summarizes one export
type ExportResult struct {
	Folder        string `json:"folder"`
	ImagesSaved   int    `json:"images_saved"`
	ImagesFailed  int    `json:"images_failed"`
	DescriptionOK bool   `json:"description_ok"`
}

// FolderName returns [prefix_]Project_N_YYYYMMDD_HHMMSS for the 0-based index
func FolderName(prefix string, index int, now time.Time) string {
	name := fmt.Sprintf("Project_%d_%s", index+1, now.Format("20060102_150405"))
	if prefix != "" {
		name = utils.SanitizeFilename(prefix) + "_" + name
	}
	return name
}

// SaveProjectOutput writes every non-nil image as processed_NNN.<ext> and the
// description, when not empty, into a new timestamped folder under outputDir.
// Individual file failures are counted, not returned.
func SaveProjectOutput(outputDir string, index int, images []*image.NRGBA, description string, opts ExportOptions) (ExportResult, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	format := strings.ToLower(opts.Format)
	ext := format
	switch format {
	case "webp":
	case "jpg", "jpeg":
		ext = "jpg"
	default:
		format, ext = "png", "png"
	}
	if opts.Quality <= 0 {
		opts.Quality = 90
	}

	res := ExportResult{Folder: FolderName(opts.Prefix, index, opts.Now)}
	dir := filepath.Join(outputDir, res.Folder)
	if err := utils.EnsureDir(dir); err != nil {
		return res, fmt.Errorf("failed to create project folder: %w", err)
	}

	proc := processing.NewProcessor()
	for i, img := range images {
		if img == nil {
			continue
		}
		path := utils.GenerateOutputFilename(fmt.Sprintf("%03d", i+1), dir, "processed_", "", ext)
		if err := proc.SaveImage(img, path, format, opts.Quality, opts.Lossless); err != nil {
			res.ImagesFailed++
			continue
		}
		res.ImagesSaved++
	}

	if description != "" {
		res.DescriptionOK = os.WriteFile(filepath.Join(dir, DescriptionFile), []byte(description), 0o644) == nil
	}
	return res, nil
}

// ReadDescription loads the description file of a project folder, empty when
// there is none
func ReadDescription(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, DescriptionFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
