//go:build ignore

// build.go - vehinspect build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: processor, test, clean, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const versionPkg = "vehinspect/pkg/contracts"

var (
	distDir = "dist"

	// release platforms as GOOS/GOARCH
	platforms = []string{"linux/amd64", "linux/arm64", "darwin/arm64", "windows/amd64"}

	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

func main() {
	target := flag.String("target", "processor", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	fmt.Println(colorCyan + "=== vehinspect build ===" + colorReset)
	startTime := time.Now()

	var err error
	switch *target {
	case "processor":
		err = buildProcessor(runtime.GOOS, runtime.GOARCH, *verbose)
	case "test":
		err = runGo(*verbose, nil, "test", "-race", "./...")
	case "clean":
		err = os.RemoveAll(distDir)
	case "release":
		err = buildRelease(*verbose)
	default:
		showHelp()
		os.Exit(1)
	}
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}

	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(startTime).Round(time.Millisecond)))
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

// ldflags stamps build time and commit into the contracts package
func ldflags() string {
	return fmt.Sprintf("-s -w -X %s.BuildTime=%s -X %s.GitCommit=%s",
		versionPkg, time.Now().UTC().Format(time.RFC3339),
		versionPkg, gitCommit())
}

func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func buildProcessor(goos, goarch string, verbose bool) error {
	name := "processor"
	if goos == "windows" {
		name += ".exe"
	}
	output := filepath.Join(distDir, goos+"_"+goarch, name)
	printInfo(fmt.Sprintf("Building %s for %s/%s...", name, goos, goarch))

	env := []string{"GOOS=" + goos, "GOARCH=" + goarch, "CGO_ENABLED=0"}
	if err := runGo(verbose, env, "build", "-trimpath", "-ldflags", ldflags(), "-o", output, "./cmd/processor"); err != nil {
		return fmt.Errorf("failed to build %s: %w", output, err)
	}

	if info, err := os.Stat(output); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", output, float64(info.Size())/1024/1024))
	}
	return nil
}

func buildRelease(verbose bool) error {
	if err := runGo(verbose, nil, "test", "./..."); err != nil {
		return fmt.Errorf("tests failed: %w", err)
	}
	for _, platform := range platforms {
		goos, goarch, _ := strings.Cut(platform, "/")
		if err := buildProcessor(goos, goarch, verbose); err != nil {
			return err
		}
	}
	return nil
}

func runGo(verbose bool, env []string, args ...string) error {
	cmd := exec.Command("go", args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stderr = os.Stderr
	if verbose {
		fmt.Printf("Running: go %s\n", strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}
	return cmd.Run()
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=TARGET")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  processor  Build the processor for the host platform (default)")
	fmt.Println("  test       Run all tests with the race detector")
	fmt.Println("  clean      Remove build artifacts")
	fmt.Println("  release    Test, then build the processor for every release platform")
}
