// modlate translates Chinese comments and string literals inside Lua mod
// sources in place, backed by a shared Google Sheets dictionary so every
// distinct fragment is translated exactly once across all runs.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/dst-tools/modlate/config"
	"github.com/dst-tools/modlate/dictionary"
	"github.com/dst-tools/modlate/errlog"
	"github.com/dst-tools/modlate/fragment"
	"github.com/dst-tools/modlate/i18n"
	"github.com/dst-tools/modlate/modfolder"
	"github.com/dst-tools/modlate/rewrite"
	"github.com/dst-tools/modlate/sheets"
	"github.com/dst-tools/modlate/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cyan   = color.New(color.FgCyan).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.Bold, color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	blue   = color.New(color.FgBlue).SprintFunc()
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", blue("[INFO]"), fmt.Sprintf(format, args...))
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", green("[OK]"), fmt.Sprintf(format, args...))
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", yellow("[WARN]"), fmt.Sprintf(format, args...))
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", red("[ERROR]"), fmt.Sprintf(format, args...))
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "modlate",
		Short: "Translate Lua mod comments and strings with a shared dictionary",
		Long: `modlate translates Lua mod sources in place.

Extracts comments and quoted string literals containing Chinese text,
translates each distinct fragment exactly once, and rewrites the files in
a translated copy of the mod folder. Translations persist in a shared
Google Sheets dictionary, so fragments already resolved in earlier runs
are reused, never re-translated.

Commands:
  translate   Clone a mod folder and translate its Lua sources
  dict        Show dictionary statistics and ignore rules
  version     Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./modlate.yaml)")

	root.AddCommand(
		newTranslateCmd(),
		newDictCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("modlate version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// dict (read-only dictionary stats)
// ---------------------------------------------------------------------------

func newDictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dict",
		Short: "Show dictionary statistics and ignore rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Discover(configPath))
			if err != nil {
				return err
			}

			store, err := sheets.NewStore(cfg.Credentials, cfg.Spreadsheet)
			if err != nil {
				return fmt.Errorf("opening dictionary store: %w", err)
			}

			cache := dictionary.NewCache()
			ignore, err := cache.LoadFrom(context.Background(), store)
			if err != nil {
				return fmt.Errorf("loading dictionary: %w", err)
			}

			var comments, quotes, pending int
			for _, rec := range cache.Records() {
				if rec.Roles&dictionary.RoleComment != 0 {
					comments++
				}
				if rec.Roles&dictionary.RoleQuoted != 0 {
					quotes++
				}
				if rec.Translated == "" {
					pending++
				}
			}

			fmt.Fprintf(os.Stderr, "\n%s\n", cyan("Dictionary"))
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
			fmt.Fprintf(os.Stderr, "  Fragments:    %d\n", cache.Len())
			fmt.Fprintf(os.Stderr, "  In comments:  %d\n", comments)
			fmt.Fprintf(os.Stderr, "  In quotes:    %d\n", quotes)
			fmt.Fprintf(os.Stderr, "  Untranslated: %d\n", pending)
			fmt.Fprintf(os.Stderr, "  Ignore rules: %d\n", len(ignore))
			for _, rule := range ignore {
				fmt.Fprintf(os.Stderr, "    - %s\n", rule)
			}
			fmt.Fprintln(os.Stderr)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		sheetID     string
		credentials string
		modsDir     string
		sourceLang  string
		destLang    string
		formatter   string
		assumeYes   bool
	)

	cmd := &cobra.Command{
		Use:   "translate [folder]",
		Short: "Clone a mod folder and translate its Lua sources",
		Long: `Clone the mod folder to a sibling '<name>_translated_en' copy and
translate every Lua file inside the copy. The original folder is never
modified. Without a folder argument the path is asked for interactively.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Discover(configPath))
			if err != nil {
				return err
			}

			// Flags override the config file.
			if sheetID != "" {
				cfg.Spreadsheet = sheetID
			}
			if credentials != "" {
				cfg.Credentials = credentials
			}
			if modsDir != "" {
				cfg.ModsDir = modsDir
			}
			if sourceLang != "" {
				cfg.SourceLang = sourceLang
			}
			if destLang != "" {
				cfg.DestLang = destLang
			}
			if cmd.Flags().Changed("formatter") {
				cfg.Formatter.Command = formatter
			}

			folder := ""
			if len(args) == 1 {
				folder = args[0]
			}

			return runTranslate(cfg, folder, assumeYes)
		},
	}

	cmd.Flags().StringVar(&sheetID, "sheet", "", "Google Sheets spreadsheet ID of the dictionary")
	cmd.Flags().StringVar(&credentials, "credentials", "", "Service account key file")
	cmd.Flags().StringVar(&modsDir, "mods-dir", "", "Directory for translated copies (default: input folder's parent)")
	cmd.Flags().StringVar(&sourceLang, "source-lang", "", "Source language code (default zh-CN)")
	cmd.Flags().StringVar(&destLang, "dest-lang", "", "Destination language code (default en)")
	cmd.Flags().StringVar(&formatter, "formatter", "", "Formatter command ('' disables formatting)")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Overwrite an existing translated copy without asking")

	return cmd
}

func runTranslate(cfg config.Config, folder string, assumeYes bool) error {
	if folder == "" {
		folder = promptFolder()
	} else if !isDir(folder) {
		return fmt.Errorf("'%s' is not a valid directory", folder)
	}
	folder = filepath.Clean(folder)

	logger, err := errlog.Open(cfg.ErrorLog)
	if err != nil {
		return err
	}
	defer logger.Close()

	report := func(format string, args ...any) {
		logError(format, args...)
		logger.Errorf(format, args...)
	}

	// Clone the mod folder; the run only ever touches the copy.
	parent := cfg.ModsDir
	if parent == "" {
		parent = filepath.Dir(folder)
	}
	dst := modfolder.ClonePath(folder, parent)

	if isDir(dst) {
		if !assumeYes && !confirm(fmt.Sprintf("The folder '%s' already exists.\nDelete it and create a new one?", dst)) {
			logInfo("%s", i18n.T("Operation cancelled."))
			return nil
		}
		if err := os.RemoveAll(dst); err != nil {
			report("deleting existing folder %s: %v", dst, err)
			return err
		}
	}
	if err := modfolder.Clone(folder, dst); err != nil {
		report("duplicating folder to %s: %v", dst, err)
		return err
	}
	logInfo(i18n.T("Duplicated folder to %s"), dst)

	files, err := modfolder.LuaFiles(dst)
	if err != nil {
		report("%v", err)
		return err
	}
	logInfo(i18n.N("Found %d Lua file to process", "Found %d Lua files to process", len(files)), len(files))

	ctx := context.Background()

	// Dictionary load is best-effort: a dead store means a slower run,
	// not a failed one.
	cache := dictionary.NewCache()
	var ignore dictionary.IgnoreList
	var store dictionary.Store

	logInfo("%s", i18n.T("Loading dictionary..."))
	sheetStore, err := sheets.NewStore(cfg.Credentials, cfg.Spreadsheet)
	if err != nil {
		report("opening dictionary store: %v", err)
	} else {
		store = sheetStore
		ignore, err = cache.LoadFrom(ctx, store)
		if err != nil {
			report("loading dictionary: %v", err)
		} else {
			logSuccess("%s (%d fragments, %d ignore rules)", i18n.T("Dictionary loaded"), cache.Len(), len(ignore))
		}
	}

	translator, err := translate.New(translate.GoogleBackend{}, translate.Options{
		Source:      cfg.SourceLang,
		Dest:        cfg.DestLang,
		MaxAttempts: cfg.MaxAttempts,
		Delay:       cfg.RetryDelay.Std(),
		Skip:        fragment.ScriptsByName(cfg.Scripts.Skip),
		OnRetry: func(attempt int, err error) {
			logger.Warnf("translation attempt %d failed: %v", attempt, err)
		},
	})
	if err != nil {
		report("%v", err)
		return err
	}
	cache.SkipScript = translator.ShouldSkip

	source := fragment.ScriptsByName(cfg.Scripts.Source)
	if source == nil {
		source = fragment.DefaultSourceScripts()
	}

	var fmtr *rewrite.Formatter
	if cfg.Formatter.Command != "" {
		fmtr = &rewrite.Formatter{
			Command: cfg.Formatter.Command,
			Args:    cfg.Formatter.Args,
			Timeout: cfg.Formatter.Timeout.Std(),
		}
	}

	rewriter := &rewrite.Rewriter{
		Cache:      cache,
		Translator: translator,
		Source:     source,
		RelPath:    modfolder.RelPath,
		Formatter:  fmtr,
		Logf:       logger.Warnf,
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan]translating[reset]"),
	)

	var translated, unchanged, ignored, failed int
	for _, file := range files {
		bar.Add(1)

		if hits := ignore.Matches(file, modfolder.TranslatedMarker); len(hits) > 0 {
			fmt.Fprintf(os.Stderr, "\n%s %s (%s)\n", yellow("ignored"), file, strings.Join(hits, ", "))
			ignored++
			continue
		}

		res, err := rewriter.RewriteFile(ctx, file)
		if err != nil {
			if errors.Is(err, dictionary.ErrFatal) {
				// A broken format string or path convention violation
				// must stop the whole run, not limp on.
				fmt.Fprintln(os.Stderr)
				report("fatal: %v", err)
				os.Exit(1)
			}
			report("processing %s: %v", file, err)
			failed++
			continue
		}

		switch {
		case res.Changed:
			fmt.Fprintf(os.Stderr, "\n%s %s (%d fragments)\n", green("translated"), file, res.Translated)
			translated++
		default:
			unchanged++
		}
		if res.Failed > 0 {
			logWarning("%d fragment(s) left untranslated in %s", res.Failed, file)
		}
	}
	fmt.Fprintln(os.Stderr)

	if skipped := cache.Skipped(); len(skipped) > 0 {
		fmt.Fprintf(os.Stderr, "\n%s\n", yellow(fmt.Sprintf(
			i18n.N("Skipped %d same-script fragment:", "Skipped %d same-script fragments:", len(skipped)), len(skipped))))
		for _, text := range skipped {
			fmt.Fprintf(os.Stderr, "  %s\n", text)
		}
	}

	logInfo("%s", i18n.T("Saving dictionary..."))
	if store != nil {
		if err := cache.SaveTo(ctx, store, cfg.Snapshot); err != nil {
			report("%v", err)
		} else {
			logSuccess("Dictionary saved")
		}
	} else if err := cache.WriteSnapshot(cfg.Snapshot); err != nil {
		report("%v", err)
	} else {
		logWarning("No dictionary store; snapshot written to %s", cfg.Snapshot)
	}

	logSuccess("%s %d translated, %d unchanged, %d ignored, %d failed",
		i18n.T("Translation completed."), translated, unchanged, ignored, failed)
	return nil
}

// ---------------------------------------------------------------------------
// Interactive prompts
// ---------------------------------------------------------------------------

// promptFolder asks for a mod folder path until an existing directory is
// given.
func promptFolder() string {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "\n"+i18n.T("Please enter the path of your mod folder: "))
		if !scanner.Scan() {
			logError("No input received")
			os.Exit(1)
		}
		path := strings.TrimSpace(scanner.Text())
		if isDir(path) {
			return path
		}
		logError("'%s' is not a valid directory. Please try again.", path)
	}
}

func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "\n%s (yes/no): ", question)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
	case "y", "yes":
		return true
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
