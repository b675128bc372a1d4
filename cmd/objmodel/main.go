package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"objmodel/pkg/config"
	"objmodel/pkg/vm"
)

func main() {
	exprFlag := flag.String("e", "", "Run the given ';'-separated commands and exit")
	configDir := flag.String("config", ".", "Directory searched for "+config.FileName)
	gcInterval := flag.Duration("gc-interval", 0, "Request a collection at this interval (0 disables)")
	traceFlag := flag.Bool("trace", false, "Log heap statistics after every collection")
	flag.Parse()

	cfg, err := config.LoadOptional(*configDir)
	if err != nil {
		log.Fatalf("objmodel: %v", err)
	}
	engine, err := vm.New(cfg)
	if err != nil {
		log.Fatalf("objmodel: %v", err)
	}

	if *gcInterval > 0 {
		stop := requestEvery(engine, *gcInterval)
		defer stop()
	}

	sh := newShell(engine, os.Stdout)
	defer sh.close()

	if *exprFlag != "" {
		if !runScript(sh, strings.Split(*exprFlag, ";"), *traceFlag) {
			os.Exit(70)
		}
		return
	}

	if flag.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "Usage: objmodel [script] or objmodel -e \"commands\"\n")
		os.Exit(64)
	}
	if flag.NArg() == 1 {
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read file '%s': %s\n", flag.Arg(0), err.Error())
			os.Exit(70)
		}
		if !runScript(sh, strings.Split(string(data), "\n"), *traceFlag) {
			os.Exit(70)
		}
		return
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	runRepl(sh, os.Stdin, interactive, *traceFlag)
}

// requestEvery asks engine for a collection every interval from a
// background goroutine. The returned function stops it.
func requestEvery(engine *vm.Engine, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				engine.RequestCollect()
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

// step runs one command and then the safe point, where any requested
// collection happens.
func step(sh *shell, line string, trace bool) error {
	err := sh.exec(line)
	if sh.engine.SafePoint() && trace {
		log.Printf("gc: %s", sh.engine.Stats())
	}
	return err
}

func runScript(sh *shell, lines []string, trace bool) bool {
	for i, line := range lines {
		if err := step(sh, line, trace); err != nil {
			fmt.Fprintf(os.Stderr, "line %d: %v\n", i+1, err)
			return false
		}
	}
	return true
}

func runRepl(sh *shell, in io.Reader, interactive, trace bool) {
	reader := bufio.NewReader(in)
	if interactive {
		fmt.Println("objmodel inspection shell (help for commands, Ctrl+D to exit)")
	}
	for {
		if interactive {
			fmt.Print("> ")
		}
		line, err := reader.ReadString('\n')
		if line != "" {
			if execErr := step(sh, line, trace); execErr != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", execErr)
			}
		}
		if err != nil {
			if err != io.EOF {
				fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			}
			if interactive {
				fmt.Println()
			}
			return
		}
	}
}
