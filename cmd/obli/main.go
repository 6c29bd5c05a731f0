// Obli CLI - transpiles MiniObli programs to constant-time Go
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/hyperpolymath/obli-transpiler-framework/artifact"
	"github.com/hyperpolymath/obli-transpiler-framework/compiler"
	"github.com/hyperpolymath/obli-transpiler-framework/manifest"
	"github.com/hyperpolymath/obli-transpiler-framework/server"
)

func main() {
	outDir := flag.String("o", "", "Output directory for emitted Go files (default: manifest build.out, or stdout)")
	expr := flag.String("e", "", "Transpile an expression given on the command line")
	checkOnly := flag.Bool("check", false, "Validate sources without emitting code")
	emitIR := flag.Bool("emit-ir", false, "Print the oblivious IR instead of Go code")
	verbose := flag.Bool("v", false, "Verbose output")
	serveMode := flag.Bool("serve", false, "Start transpile server (Connect HTTP/JSON)")
	servePort := flag.Int("port", 4567, "Transpile server port (used with --serve)")
	lspMode := flag.Bool("lsp", false, "Start LSP language server on stdio")
	noCache := flag.Bool("no-cache", false, "Skip the artifact cache")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: obli [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Transpiles .mobli files to constant-time Go programs.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  obli program.mobli             # Transpile to stdout\n")
		fmt.Fprintf(os.Stderr, "  obli -o gen program.mobli      # Transpile into gen/\n")
		fmt.Fprintf(os.Stderr, "  obli -e 'secret(1) + 2'        # Transpile an inline expression\n")
		fmt.Fprintf(os.Stderr, "  obli --check src/*.mobli       # Validate only\n")
		fmt.Fprintf(os.Stderr, "  obli --emit-ir program.mobli   # Show the oblivious IR\n")
		fmt.Fprintf(os.Stderr, "\nServers:\n")
		fmt.Fprintf(os.Stderr, "  obli --serve                   # Transpile server on :4567\n")
		fmt.Fprintf(os.Stderr, "  obli --serve --port 8080       # Transpile server on :8080\n")
		fmt.Fprintf(os.Stderr, "  obli --lsp                     # LSP on stdio\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	// Project manifest, if any, supplies defaults for output and cache.
	mf, err := manifest.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if mf != nil && *verbose {
		fmt.Printf("Using project %s (%s)\n", mf.Project.Name, mf.Dir)
	}

	var store *artifact.Store
	if !*noCache && mf != nil {
		store, err = artifact.Open(mf.CachePath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: artifact cache unavailable: %v\n", err)
		} else {
			defer store.Close()
		}
	}

	// LSP mode: everything happens over stdio.
	if *lspMode {
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(os.Stderr, "LSP error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Server mode.
	if *serveMode {
		var opts []server.Option
		if store != nil {
			opts = append(opts, server.WithStore(store))
		}
		addr := fmt.Sprintf(":%d", *servePort)
		if err := server.New(opts...).ListenAndServe(addr); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Inline expression.
	if *expr != "" {
		if err := processSource("<expr>", *expr, "", *checkOnly, *emitIR, store, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	files := flag.Args()
	if len(files) == 0 && mf != nil {
		files = collectSources(mf)
	}
	if len(files) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	dest := *outDir
	if dest == "" && mf != nil && !*checkOnly && !*emitIR {
		dest = mf.OutPath()
	}

	failed := false
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed = true
			continue
		}
		if err := processSource(file, string(data), dest, *checkOnly, *emitIR, store, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// processSource runs one source through the requested pipeline stage.
func processSource(name, source, dest string, checkOnly, emitIR bool, store *artifact.Store, verbose bool) error {
	if checkOnly {
		if err := compiler.Check(source); err != nil {
			return err
		}
		if verbose {
			fmt.Printf("%s: ok\n", name)
		}
		return nil
	}

	if emitIR {
		ir, err := lower(source)
		if err != nil {
			return err
		}
		fmt.Println(compiler.DumpIR(ir))
		return nil
	}

	code, err := transpileCached(source, store, verbose)
	if err != nil {
		return err
	}

	if dest == "" {
		fmt.Print(code)
		return nil
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	outFile := filepath.Join(dest, outputName(name))
	if err := os.WriteFile(outFile, []byte(code), 0o644); err != nil {
		return err
	}
	if verbose {
		fmt.Printf("%s -> %s\n", name, outFile)
	}
	return nil
}

// transpileCached compiles the source, consulting the artifact cache when
// one is open.
func transpileCached(source string, store *artifact.Store, verbose bool) (string, error) {
	key := artifact.SourceKey(source)

	if store != nil {
		if entry, err := store.Get(key); err == nil {
			if verbose {
				fmt.Printf("cache hit %s\n", key[:12])
			}
			return entry.Code, nil
		} else if !errors.Is(err, artifact.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "Warning: cache lookup failed: %v\n", err)
		}
	}

	ir, err := lower(source)
	if err != nil {
		return "", err
	}
	code := compiler.Emit(ir)

	if store != nil {
		if encoded, err := artifact.EncodeIR(ir); err == nil {
			entry := &artifact.Entry{Key: key, IR: encoded, Code: code, CreatedAt: time.Now()}
			if err := store.Put(entry); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: cache store failed: %v\n", err)
			}
		}
	}

	return code, nil
}

// lower parses and transforms a source string to oblivious IR.
func lower(source string) (compiler.ObliExpr, error) {
	ast, err := compiler.ParseSource(source)
	if err != nil {
		return nil, err
	}
	return compiler.ToOblivious(ast), nil
}

// collectSources gathers .mobli files from the manifest's source dirs.
func collectSources(mf *manifest.Manifest) []string {
	var files []string
	for _, dir := range mf.SourceDirPaths() {
		matches, err := filepath.Glob(filepath.Join(dir, "*.mobli"))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	return files
}

// outputName maps program.mobli to program.go.
func outputName(input string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, ".mobli")
	return base + ".go"
}
