// Command mtrace-env resolves the same Options a traced process would pick
// up from its environment and prints them, without loading the
// interposition shared object. Useful for sanity-checking an MTRACE_* env
// block before an LD_PRELOAD run, and for the original's option-precedence
// quirks (see SPEC_FULL.md) that are otherwise easy to get wrong by hand.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sergey-senozhatsky/libmtrace"
)

func main() {
	verbose := flag.Bool("v", false, "also print the raw MTRACE_* environment block")
	flag.Parse()

	opts := mtrace.ParseEnv(func(key string) (string, bool) {
		return os.LookupEnv(key)
	})

	fmt.Printf("mode:            %s\n", modeName(opts.Mode))
	fmt.Printf("backtrace depth: %d\n", opts.BacktraceDepth)
	fmt.Printf("log dir:         %s\n", logDirOrStderr(opts.LogDir))
	fmt.Printf("human readable:  %t\n", opts.HumanReadable)
	if opts.Mode == mtrace.ModeWatermark {
		fmt.Printf("min watermark:   %d\n", opts.MinWatermark)
		fmt.Printf("max watermark:   %d\n", opts.MaxWatermark)
	}

	if *verbose {
		fmt.Println("\nraw environment:")
		for _, key := range []string{
			"MTRACE_BACKTRACE_DEPTH",
			"MTRACE_LOG_DIR",
			"MTRACE_REPORTING_MODE",
			"MTRACE_ALLOC_MINWMARK",
			"MTRACE_ALLOC_MAXWMARK",
			"MTRACE_HUMAN_READABLE",
		} {
			if v, ok := os.LookupEnv(key); ok {
				fmt.Printf("  %s=%s\n", key, v)
			}
		}
	}
}

func modeName(m mtrace.Mode) string {
	switch m {
	case mtrace.ModeGrowth:
		return "growth"
	case mtrace.ModeAllocTop:
		return "alloc-top"
	case mtrace.ModeAllocOnly:
		return "alloc-only"
	case mtrace.ModeFull:
		return "full"
	case mtrace.ModeWatermark:
		return "watermark"
	default:
		return "unknown"
	}
}

func logDirOrStderr(dir string) string {
	if dir == "" {
		return "(stderr)"
	}
	return dir
}
