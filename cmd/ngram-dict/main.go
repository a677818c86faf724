package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/pverkind/OCRngrams/pkg/ngrams"
	"github.com/pverkind/OCRngrams/pkg/ngrams/config"
	"github.com/pverkind/OCRngrams/pkg/ngrams/corpus"
	"github.com/pverkind/OCRngrams/pkg/ngrams/ingest"
	"github.com/pverkind/OCRngrams/pkg/ngrams/store"
	"github.com/pverkind/OCRngrams/pkg/ngrams/store/sqlite"
)

var (
	app        = kingpin.New("ngram-dict", "Build n-gram frequency dictionaries from text corpora")
	configPath = app.Flag("config", "YAML config file").Short('c').ExistingFile()
	flags      overrides

	countFileCmd = app.Command("count-file", "Count the n-grams of single documents")
	countFiles   = countFileCmd.Arg("FILE", "Documents to count").Required().ExistingFiles()

	countFolderCmd = app.Command("count-folder", "Count a folder of documents into out_dir and merge them into one dictionary")
	folderOut      = countFolderCmd.Flag("out", "Dictionary path (default <folder>_ngram_count.json)").String()
	folderIn       = countFolderCmd.Arg("FOLDER", "Corpus folder").Required().ExistingDir()

	joinCmd  = app.Command("join", "Merge existing count files into one dictionary")
	joinOut  = joinCmd.Flag("out", "Dictionary path (default <dir>_ngram_count.json)").String()
	joinName = joinCmd.Flag("name", "Corpus name recorded in the database (default <dir>)").String()
	joinDir  = joinCmd.Arg("DIR", "Folder of *_ngram_count.json files").Required().ExistingDir()

	batchCmd     = app.Command("batch", "Count every sub-corpus folder of a root folder")
	batchOutRoot = batchCmd.Flag("out-root", "Output root (default out_dir)").String()
	batchRoot    = batchCmd.Arg("ROOT", "Folder holding one subfolder per corpus").Required().ExistingDir()
	batchNames   = batchCmd.Arg("CORPUS", "Sub-corpora to process (default all)").Strings()

	topCmd    = app.Command("top", "Show the most frequent n-grams of a recorded corpus")
	topK      = topCmd.Flag("k", "Number of n-grams to show (0 = all)").Short('k').Default("20").Int()
	topCorpus = topCmd.Arg("CORPUS", "Corpus name").Required().String()

	corporaCmd = app.Command("corpora", "List the corpora recorded in the database")

	lookupCmd    = app.Command("lookup", "Show the count of one n-gram in a recorded corpus")
	lookupCorpus = lookupCmd.Arg("CORPUS", "Corpus name").Required().String()
	lookupTokens = lookupCmd.Arg("TOKEN", "Tokens of the n-gram").Required().Strings()
)

func init() {
	app.Flag("n", "n-gram size").IntVar(&flags.N)
	app.Flag("header-marker", "Line marking the end of the document header").StringVar(&flags.HeaderMarker)
	app.Flag("token-rule", "Named token rule").EnumVar(&flags.TokenRule, ingest.RuleNames()...)
	app.Flag("token-pattern", "Token regexp, overrides --token-rule").StringVar(&flags.TokenPattern)
	app.Flag("out-dir", "Folder for per-document count files").StringVar(&flags.OutDir)
	app.Flag("input-threshold", "Minimum per-document count").Int64Var(&flags.Input)
	app.Flag("output-threshold", "Minimum corpus count").Int64Var(&flags.Output)
	app.Flag("workers", "Documents counted in parallel").IntVar(&flags.Workers)
	app.Flag("db", "SQLite database recording corpus dictionaries").StringVar(&flags.DBPath)
	app.Flag("overwrite", "Recount documents that already have a count file").BoolVar(&flags.Overwrite)
	app.Flag("verbose", "Log progress").Short('v').BoolVar(&flags.Verbose)
	app.Flag("continue-on-error", "Skip failing documents instead of aborting").BoolVar(&flags.ContinueOnError)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("[ngram-dict] ")

	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig(*configPath, flags)
	if err != nil {
		log.Fatal(err)
	}

	switch cmd {
	case topCmd.FullCommand(), corporaCmd.FullCommand(), lookupCmd.FullCommand():
		err = runQuery(ctx, cmd, cfg)
	default:
		err = run(ctx, cmd, cfg)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd string, cfg config.Config) error {
	b, cleanup, err := buildBuilder(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	switch cmd {
	case countFileCmd.FullCommand():
		for _, path := range *countFiles {
			t, err := b.CountFile(ctx, path)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s distinct, %d total\n", color.CyanString(path), color.GreenString("%d", len(t)), t.Total())
		}
		return nil

	case countFolderCmd.FullCommand():
		res, err := b.CountFolder(ctx, *folderIn, *folderOut)
		printResult(res)
		return reportFailures(err)

	case joinCmd.FullCommand():
		name := *joinName
		if name == "" {
			name = filepath.Base(filepath.Clean(*joinDir))
		}
		out := *joinOut
		if out == "" {
			out = ngrams.DictionaryPath(*joinDir)
		}
		res, err := b.Join(ctx, *joinDir, out, name)
		if err != nil {
			return err
		}
		printResult(res)
		return nil

	case batchCmd.FullCommand():
		outRoot := *batchOutRoot
		if outRoot == "" {
			outRoot = cfg.OutDir
		}
		results, err := b.CountCorpora(ctx, *batchRoot, outRoot, *batchNames)
		for _, res := range results {
			printResult(res)
		}
		return reportFailures(err)
	}
	return fmt.Errorf("unknown command %s", cmd)
}

// buildBuilder creates the pipeline, attaching the sqlite store when a
// database path is configured.
func buildBuilder(ctx context.Context, cfg config.Config) (*ngrams.Builder, func(), error) {
	var opts []ngrams.Option
	cleanup := func() {}
	if cfg.DBPath != "" {
		st, err := sqlite.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, ngrams.WithStore(st))
		cleanup = func() { st.Close() }
	}
	b, err := ngrams.New(cfg, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return b, cleanup, nil
}

// runQuery answers the database commands: top, corpora and lookup.
func runQuery(ctx context.Context, cmd string, cfg config.Config) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("%s needs a database: set db_path or --db", cmd)
	}
	st, err := sqlite.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	switch cmd {
	case topCmd.FullCommand():
		return printTop(ctx, st, *topCorpus, *topK)
	case corporaCmd.FullCommand():
		return printCorpora(ctx, st)
	case lookupCmd.FullCommand():
		return printLookup(ctx, st, *lookupCorpus, strings.Join(*lookupTokens, " "))
	}
	return fmt.Errorf("unknown command %s", cmd)
}

func printTop(ctx context.Context, st store.Store, name string, k int) error {
	d, ok, err := st.GetDictionary(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("corpus %s not recorded in the database", name)
	}
	color.Cyan("%s  n=%d  rule=%s  documents=%d  thresholds=%d/%d  run=%s",
		d.Corpus, d.N, d.TokenRule, d.Documents, d.InputThreshold, d.OutputThreshold, d.ID)

	entries, err := st.Top(ctx, name, k)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%10d  %s\n", e.Count, e.Key)
	}
	return nil
}

func printCorpora(ctx context.Context, st store.Store) error {
	runs, err := st.Corpora(ctx)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Printf("%s  n=%d  rule=%s  documents=%d  thresholds=%d/%d  %s\n",
			color.CyanString(r.Corpus), r.N, r.TokenRule, r.Documents,
			r.InputThreshold, r.OutputThreshold, r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func printLookup(ctx context.Context, st store.Store, name, ngram string) error {
	count, ok, err := st.Lookup(ctx, name, ngram)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("%s: %s\n", ngram, color.YellowString("not found in %s", name))
		return nil
	}
	fmt.Printf("%s: %s\n", ngram, color.GreenString("%d", count))
	return nil
}

func printResult(res corpus.Result) {
	if res.OutPath == "" {
		return
	}
	fmt.Printf("%s: %s distinct n-grams from %d documents\n",
		color.CyanString(res.OutPath), color.GreenString("%d", len(res.Table)), res.Documents)
}

// reportFailures prints the documents skipped under continue_on_error.
// The error is still returned so the exit status reflects it.
func reportFailures(err error) error {
	var folderErrs []*ngrams.FolderError
	collectFolderErrors(err, &folderErrs)
	for _, fe := range folderErrs {
		for path, ferr := range fe.Failed {
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", color.RedString("failed"), path, ferr)
		}
	}
	return err
}

func collectFolderErrors(err error, out *[]*ngrams.FolderError) {
	if err == nil {
		return
	}
	if fe, ok := err.(*ngrams.FolderError); ok {
		*out = append(*out, fe)
		return
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			collectFolderErrors(e, out)
		}
	}
}
