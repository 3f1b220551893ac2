package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"

	"github.com/ironsheep/shape-tools-mcp/internal/engine"
	"github.com/ironsheep/shape-tools-mcp/internal/imaging"
	"github.com/ironsheep/shape-tools-mcp/internal/server"
)

// Build information - set by ldflags during build. The version itself lives
// in the engine package.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

// run parses args and executes one mode, returning the process exit code:
// 0 on success, 1 when the work fails and 2 for usage errors.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	parser := argparse.NewParser("shape-tools-mcp", "MCP server for geometric shape detection")
	showVersion := parser.Flag("v", "version", &argparse.Options{Help: "Print version information"})
	configFile := parser.String("c", "config", &argparse.Options{Help: "Detection config JSON file (default: $SHAPE_MCP_CONFIG, else built-in defaults)"})
	detectFile := parser.String("d", "detect", &argparse.Options{Help: "Detect shapes in an image, print the result and exit"})
	annotateFile := parser.String("a", "annotate", &argparse.Options{Help: "Annotate the shapes in an image and exit (requires --out)"})
	outFile := parser.String("o", "out", &argparse.Options{Help: "Output PNG for --annotate"})
	err := parser.Parse(args)
	if err == nil {
		err = checkModes(*detectFile, *annotateFile, *outFile)
	}
	if err != nil {
		fmt.Fprint(stderr, parser.Usage(err))
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "shape-tools-mcp %s\n", engine.Version())
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return 0
	}

	// stdout is reserved for MCP protocol and tool output
	logger := server.NewWriterLog(stderr, os.Getenv("SHAPE_MCP_LOG_LEVEL") == "debug")
	defer logger.Close()
	logger.Debugf("Shape MCP Server v%s (built %s, commit %s)", engine.Version(), BuildTime, GitCommit)

	path := *configFile
	if path == "" {
		path = os.Getenv("SHAPE_MCP_CONFIG")
	}
	source := engine.DefaultConfig()
	if path != "" {
		source = engine.ConfigFile(path)
	}

	eng := engine.New(logger, source)
	initErr := eng.Init()

	switch {
	case *detectFile != "":
		return runDetect(logger, eng, initErr, *detectFile, stdout)
	case *annotateFile != "":
		return runAnnotate(logger, eng, initErr, *annotateFile, *outFile)
	}

	// A failed init is reported through the tools; clients may retry with
	// engine_init.
	if initErr != nil {
		logger.Warnf("Starting with engine not ready: %v", initErr)
	}

	srv := server.New(eng, logger)
	if err := srv.Serve(stdin, stdout); err != nil {
		logger.Criticalf("Server error: %v", err)
		return 1
	}
	return 0
}

// checkModes rejects flag combinations that name more than one mode.
func checkModes(detect, annotate, out string) error {
	switch {
	case detect != "" && annotate != "":
		return errors.New("--detect and --annotate are mutually exclusive")
	case annotate != "" && out == "":
		return errors.New("--annotate requires --out")
	case out != "" && annotate == "":
		return errors.New("--out is only valid with --annotate")
	}
	return nil
}

func runDetect(logger logs.Log, eng *engine.Engine, initErr error, path string, stdout io.Writer) int {
	if initErr != nil {
		return fail(logger, initErr)
	}
	img, err := loadFile(path)
	if err != nil {
		return fail(logger, err)
	}
	text, err := eng.DetectShapes(img)
	if err != nil {
		return fail(logger, err)
	}
	fmt.Fprintln(stdout, text)
	return 0
}

func runAnnotate(logger logs.Log, eng *engine.Engine, initErr error, path, out string) int {
	if initErr != nil {
		return fail(logger, initErr)
	}
	img, err := loadFile(path)
	if err != nil {
		return fail(logger, err)
	}
	annotated, result, err := eng.AnnotateWithResult(img)
	if err != nil {
		return fail(logger, err)
	}
	if err := imaging.SavePNG(out, annotated); err != nil {
		return fail(logger, err)
	}
	logger.Infof("Wrote %d detections to %s", result.Count, out)
	return 0
}

func loadFile(path string) (*imaging.ImageBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", imaging.ErrInvalidImage, err)
	}
	defer f.Close()
	img, err := imaging.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", imaging.ErrInvalidImage, err)
	}
	return img, nil
}

func fail(logger logs.Log, err error) int {
	logger.Errorf("%s: %v", engine.ErrorKind(err), err)
	return 1
}
