package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/zettelgen/internal/metrics"
	"github.com/ppiankov/zettelgen/internal/model"
	"github.com/ppiankov/zettelgen/internal/pipeline"
)

var (
	startPage   int
	endPage     int
	outputDir   string
	provider    string
	llmModel    string
	template    string
	chapterName string
	createIndex bool
	createMOC   bool
	bookTitle   string
	author      string
	maxRetries  int
	noCache     bool
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process <pdf>",
	Short: "Generate Zettelkasten notes from a page range",
	Long: `Process extracts the text of one page range and turns it into notes:
- Extract and clean the text of pages start..end (0-indexed, inclusive)
- Ask the language model for the core concepts as JSON
- Retry with backoff when the backend fails or the output is unusable
- Write one markdown note per concept, never overwriting existing notes

Example:
  zettelgen process book.pdf -s 10 -e 25
  zettelgen process book.pdf -s 10 -e 25 --chapter "Chapter 1" --create-index
  zettelgen process book.pdf -s 10 -e 25 --provider anthropic -o ./vault`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().IntVarP(&startPage, "start", "s", 0, "first page (0-indexed)")
	processCmd.Flags().IntVarP(&endPage, "end", "e", 0, "last page (0-indexed, inclusive)")
	processCmd.Flags().StringVar(&chapterName, "chapter", "", "chapter name recorded in the notes")
	_ = processCmd.MarkFlagRequired("start")
	_ = processCmd.MarkFlagRequired("end")

	addOutputFlags(processCmd)
}

// addOutputFlags registers the flags shared by process and batch
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for notes")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (openai, anthropic, google)")
	cmd.Flags().StringVar(&llmModel, "model", "", "model name (default: provider default)")
	cmd.Flags().StringVar(&template, "template", "", "custom note template file")
	cmd.Flags().BoolVar(&createIndex, "create-index", false, "write an index note for the chapter")
	cmd.Flags().BoolVar(&createMOC, "create-moc", false, "write a map of content note")
	cmd.Flags().StringVar(&bookTitle, "book-title", "", "book title used in note metadata")
	cmd.Flags().StringVar(&author, "author", "", "book author used in the map of content")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "maximum extraction attempts per chapter")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force a fresh extraction)")
}

// applyFlags overlays explicitly set flags on the loaded configuration
func applyFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Dir = outputDir
	}
	if flags.Changed("provider") {
		cfg.LLM.Provider = provider
		if !flags.Changed("model") {
			// A model configured for another backend would not resolve
			cfg.LLM.Model = ""
		}
	}
	if flags.Changed("model") {
		cfg.LLM.Model = llmModel
	}
	if flags.Changed("template") {
		cfg.Output.TemplatePath = template
	}
	if flags.Changed("create-index") {
		cfg.Output.CreateIndex = createIndex
	}
	if flags.Changed("create-moc") {
		cfg.Output.CreateMOC = createMOC
	}
	if flags.Changed("book-title") {
		cfg.Output.BookTitle = bookTitle
	}
	if flags.Changed("author") {
		cfg.Output.Author = author
	}
	if flags.Changed("max-retries") {
		cfg.Extraction.MaxRetries = maxRetries
	}
}

// setup builds the logger, metrics recorder, and pipeline for a command
func setup(cmd *cobra.Command, adjust func(*model.Config)) (*pipeline.Pipeline, *model.Config, *zap.Logger, *metrics.Recorder, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	applyFlags(cmd, cfg)
	if adjust != nil {
		adjust(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, nil, err
	}

	logger, err := newLogger()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	llmProvider, err := buildProvider(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	recorder := newRecorder()
	p, err := pipeline.NewPipeline(cfg, llmProvider,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(recorder),
	)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return p, cfg, logger, recorder, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	source := args[0]
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, cfg, logger, recorder, err := setup(cmd, nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer writeMetrics(recorder, logger)

	chapter := model.Chapter{Name: chapterName, Start: startPage, End: endPage}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Zettelkasten Note Generation\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Source:       %s\n", source)
	fmt.Fprintf(os.Stderr, "  Pages:        %s\n", chapter.PageRange())
	fmt.Fprintf(os.Stderr, "  Chapter:      %s\n", chapter.Label())
	fmt.Fprintf(os.Stderr, "  Backend:      %s\n", cfg.LLM.Provider)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	fmt.Fprintf(os.Stderr, "\n")

	result, err := p.ProcessChapter(ctx, pipeline.ChapterRequest{
		SourcePath: source,
		Chapter:    chapter,
		NoCache:    noCache,
	})
	if err != nil {
		return describeFailure(err)
	}

	printChapterResult(result)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Notes:     %d\n", len(result.Notes))
	fmt.Fprintf(os.Stderr, "  Created:   %d\n", len(result.FilesCreated))
	fmt.Fprintf(os.Stderr, "  Skipped:   %d\n", len(result.FilesSkipped))
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", result.OutputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

func printChapterResult(result *model.ChapterResult) {
	source := "generated by " + result.Provider + "/" + result.Model
	if result.Cached {
		source = "from cache"
	}
	fmt.Fprintf(os.Stderr, "✓ %s: %d notes %s (%d chars of text)\n",
		result.Chapter.Label(), len(result.Notes), source, result.TextLength)

	if verbose {
		for _, path := range result.FilesCreated {
			fmt.Fprintf(os.Stderr, "  + %s\n", path)
		}
		for _, path := range result.FilesSkipped {
			fmt.Fprintf(os.Stderr, "  = %s (already exists)\n", path)
		}
	}
	if result.IndexPath != "" {
		fmt.Fprintf(os.Stderr, "✓ Index: %s\n", result.IndexPath)
	}
	if result.MOCPath != "" {
		fmt.Fprintf(os.Stderr, "✓ Map of content: %s\n", result.MOCPath)
	}
}
