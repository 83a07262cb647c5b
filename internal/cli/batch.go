package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/zettelgen/internal/model"
	"github.com/ppiankov/zettelgen/internal/worker"
)

var (
	batchPDF    string
	concurrency int
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <chapters-file>",
	Short: "Generate notes for every chapter listed in a file",
	Long: `Batch processes several chapters of one book concurrently:
- Read chapter names and page ranges from a YAML or JSON file
- Open the PDF once and share it between workers
- Each chapter gets its own extraction and retry budget
- Write a single map of content once all chapters are done

Chapters file:
  pdf: book.pdf
  chapters:
    - name: Chapter 1
      start: 10
      end: 25

Example:
  zettelgen batch chapters.yaml
  zettelgen batch chapters.yaml --pdf other.pdf --concurrency 4 --create-moc`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchPDF, "pdf", "", "source PDF (overrides the chapters file)")
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")

	addOutputFlags(batchCmd)
}

// resolveSource picks the source document for a chapters file. A relative
// path inside the file is relative to the file itself.
func resolveSource(chaptersPath string, file *worker.ChapterFile, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if file.PDF == "" {
		return "", errors.New("no PDF given: set pdf in the chapters file or pass --pdf")
	}
	if filepath.IsAbs(file.PDF) {
		return file.PDF, nil
	}
	return filepath.Join(filepath.Dir(chaptersPath), file.PDF), nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	chaptersPath := args[0]
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	file, err := worker.ReadChapterFile(chaptersPath)
	if err != nil {
		return err
	}
	source, err := resolveSource(chaptersPath, file, batchPDF)
	if err != nil {
		return err
	}

	// The map of content is written once, after every chapter
	var wantMOC bool
	p, cfg, logger, recorder, err := setup(cmd, func(cfg *model.Config) {
		if cmd.Flags().Changed("concurrency") {
			cfg.Concurrency.Workers = concurrency
		}
		wantMOC = cfg.Output.CreateMOC
		cfg.Output.CreateMOC = false
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer writeMetrics(recorder, logger)

	workers := cfg.Concurrency.Workers
	if workers < 1 {
		workers = 1
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Zettelkasten Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Chapters file: %s\n", chaptersPath)
	fmt.Fprintf(os.Stderr, "  Source:        %s\n", source)
	fmt.Fprintf(os.Stderr, "  Chapters:      %d\n", len(file.Chapters))
	fmt.Fprintf(os.Stderr, "  Workers:       %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Backend:       %s\n", cfg.LLM.Provider)
	fmt.Fprintf(os.Stderr, "  Output dir:    %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	doc, err := p.Open(source)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Opened %s (%d pages)\n", source, doc.PageCount())
	fmt.Fprintf(os.Stderr, "⚙️  Processing chapters with %d workers...\n\n", workers)

	processor := worker.NewBatchProcessor(p, workers)
	results := processor.ProcessChapters(ctx, source, doc, file.Chapters)

	var (
		all          model.Batch
		successCount int
		failureCount int
		created      int
		skipped      int
	)
	for _, res := range results {
		if res.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s (pages %s): %v\n", res.Chapter.Label(), res.Chapter.PageRange(), describeFailure(res.Error))
			continue
		}

		successCount++
		all = append(all, res.Result.Notes...)
		created += len(res.Result.FilesCreated)
		skipped += len(res.Result.FilesSkipped)
		printChapterResult(res.Result)
	}

	if wantMOC && len(all) > 0 {
		path, err := p.Renderer().RenderMOC(all, "")
		if err != nil {
			logger.Warn("failed to write MOC", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "✓ Map of content: %s\n", path)
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d chapters\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Notes:     %d created, %d skipped\n", created, skipped)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	if successCount == 0 {
		return fmt.Errorf("all %d chapters failed", failureCount)
	}
	return nil
}
