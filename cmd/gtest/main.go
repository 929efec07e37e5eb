// gtest runs mpc over parsed programs and compares its C output with golden
// files. A golden file sits next to its program with a .c extension; an empty
// golden means the program must be rejected.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

type FileTestResult struct {
	File    string     `json:"file"`
	Status  string     `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string     `json:"message,omitempty"`
	Diff    string     `json:"diff,omitempty"`
	Hash    string     `json:"hash,omitempty"`
	Target  *Execution `json:"target,omitempty"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	targetCompiler = flag.String("target-compiler", "./mpc", "Path to the compiler to test.")
	targetArgs     = flag.String("target-args", "-q", "Arguments for the compiler (space-separated).")
	testFiles      = flag.String("test-files", "testdata/*.json", "Glob pattern(s) for programs to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".test_results.json", "Output file for the JSON test report.")
	timeout        = flag.Duration("timeout", 5*time.Second, "Timeout for each compiler execution.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	useCache       = flag.Bool("cached", false, "Skip programs whose input, golden and compiler are unchanged since their last pass.")
	update         = flag.Bool("update", false, "Rewrite the golden files with the current output.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	setupInterruptHandler()

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	compilerHash, err := hashFiles(lookCompiler(*targetCompiler))
	if err != nil {
		log.Fatalf("%s[ERROR]%s Could not hash compiler %s: %v\n", cRed, cNone, *targetCompiler, err)
	}

	previous := loadPreviousResults()
	skipList := make(map[string]bool)
	for _, f := range strings.Fields(*skipFiles) {
		skipList[f] = true
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file, compilerHash, previous)
			}
		}()
	}

	for _, file := range files {
		if skipList[file] || skipList[filepath.Base(file)] {
			resultsChan <- &FileTestResult{File: file, Status: "SKIP", Message: "Explicitly skipped"}
			continue
		}
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})

	printSummary(allResults)
	resultsMap := writeJSONReport(allResults)
	if hasFailures(resultsMap) {
		os.Exit(1)
	}
}

func setupInterruptHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled.\n", cYellow, cNone)
		os.Exit(1)
	}()
}

func goldenPath(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file)) + ".c"
}

func lookCompiler(name string) string {
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	return name
}

// hashFiles computes one xxhash over the contents of paths. A missing file
// hashes as empty.
func hashFiles(paths ...string) (string, error) {
	h := xxhash.New()
	for _, path := range paths {
		f, err := os.Open(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", err
		}
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func loadPreviousResults() TestSuiteResults {
	previous := make(TestSuiteResults)
	data, err := os.ReadFile(*outputJSON)
	if err != nil {
		return previous
	}
	if json.Unmarshal(data, &previous) != nil {
		log.Printf("%s[WARN]%s Could not parse previous results file %s. Cache will not be used.\n", cYellow, cNone, *outputJSON)
		return make(TestSuiteResults)
	}
	return previous
}

func testFile(file, compilerHash string, previous TestSuiteResults) *FileTestResult {
	golden := goldenPath(file)
	fileHash, err := hashFiles(file, golden)
	if err != nil {
		return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Failed to hash test files: %v", err)}
	}
	key := compilerHash + "-" + fileHash

	if *useCache && !*update {
		if prev, ok := previous[file]; ok && prev.Status == "PASS" && prev.Hash == key {
			return &FileTestResult{File: file, Status: "PASS", Message: "Unchanged since last pass (cached)", Hash: key, Target: prev.Target}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	args := append(strings.Fields(*targetArgs), file)
	run := executeCommand(ctx, *targetCompiler, args...)
	if run.TimedOut {
		return &FileTestResult{File: file, Status: "FAIL", Message: "Compiler timed out", Target: &run}
	}
	if run.ExitCode < 0 {
		return &FileTestResult{File: file, Status: "ERROR", Message: "Could not run the compiler", Diff: run.Stderr, Target: &run}
	}

	if *update {
		if err := os.WriteFile(golden, []byte(run.Stdout), 0644); err != nil {
			return &FileTestResult{File: file, Status: "ERROR", Message: fmt.Sprintf("Could not write golden file %s: %v", golden, err)}
		}
		if *verbose {
			log.Printf("[%s] golden file updated: %s", file, golden)
		}
		return &FileTestResult{File: file, Status: "PASS", Message: "Golden file updated", Target: &run}
	}

	want, err := os.ReadFile(golden)
	if err != nil {
		return &FileTestResult{File: file, Status: "SKIP", Message: "Cannot test without a corresponding .c golden file", Target: &run}
	}
	return compareWithGolden(file, string(want), &run, key)
}

func compareWithGolden(file, want string, got *Execution, key string) *FileTestResult {
	res := &FileTestResult{File: file, Target: got}
	rejected := want == ""

	switch {
	case rejected && got.ExitCode == 0:
		res.Status, res.Message = "FAIL", "Compiler accepted a program the golden file expects to be rejected"
		res.Diff = got.Stdout
	case !rejected && got.ExitCode != 0:
		res.Status, res.Message = "FAIL", fmt.Sprintf("Compiler exited with code %d", got.ExitCode)
		res.Diff = fmt.Sprintf("Compiler STDERR:\n%s", got.Stderr)
	default:
		if diff := cmp.Diff(want, got.Stdout); diff != "" {
			res.Status, res.Message, res.Diff = "FAIL", "Output mismatch (-golden +target)", diff
			break
		}
		res.Status, res.Hash = "PASS", key
		if rejected {
			res.Message = "Program rejected as expected"
		} else {
			res.Message = "Output matches golden file"
		}
	}
	return res
}

func executeCommand(ctx context.Context, command string, args ...string) Execution {
	startTime := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.TimedOut = true
		res.ExitCode = -1
	} else if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -2
			res.Stderr += "\nExecution error: " + err.Error()
		}
	}
	return res
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.2fms", float64(d.Microseconds())/1000)
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var total time.Duration

	for _, result := range results {
		if result.Target != nil {
			total += result.Target.Duration
		}
		if result.Status == "PASS" && !*verbose {
			passed++
			continue
		}

		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)
		switch result.Status {
		case "PASS":
			passed++
			fmt.Printf("  [%sPASS%s] %s", cGreen, cNone, result.Message)
			if result.Target != nil {
				fmt.Printf(" [%s]", formatDuration(result.Target.Duration))
			}
			fmt.Println()
		case "FAIL":
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case "SKIP":
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case "ERROR":
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	if len(results) > 0 {
		fmt.Printf("Compiler time: %s total, %s on average.\n",
			formatDuration(total), formatDuration(total/time.Duration(len(results))))
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmed, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}
	if err := os.WriteFile(*outputJSON, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, *outputJSON, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", *outputJSON)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == "FAIL" || result.Status == "ERROR" {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			abs, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() && !seen[abs] {
				allFiles = append(allFiles, abs)
				seen[abs] = true
			}
		}
	}
	return allFiles, nil
}
