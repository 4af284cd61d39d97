package util

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/manifoldco/promptui"
)

var (
	IsDebug bool

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#009DEF")).
			Bold(true).
			Underline(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4")).
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#45B7D1")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4757")).
			Bold(true)

	debugErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF4757")).
			Padding(1, 2)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA726")).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF69B4")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

// SetDebugMode sets the debug mode
func SetDebugMode(debug bool) {
	IsDebug = debug
}

// ErrorHandler returns a stylized error message. In debug mode the full
// wrapped chain (including pkg/errors stack traces) is shown.
func ErrorHandler(err error) string {
	if IsDebug {
		styledHeader := errorStyle.Render("DEBUG ERROR")
		styledError := debugErrorStyle.Render(fmt.Sprintf("%+v", err))
		return fmt.Sprintf("%s\n%s", styledHeader, styledError)
	}

	styledError := errorStyle.Render(fmt.Sprintf("x %v", err))
	styledHint := warningStyle.Render("run the program with -debug to see details")
	return fmt.Sprintf("%s\n%s", styledError, styledHint)
}

// Helper prints the help message
func Helper() {
	fmt.Println(titleStyle.Render("ceddoskip - skip the reaction layout on dailyceddo videos"))
	fmt.Println()
	fmt.Println(helpStyle.Render("Usage:"))
	for _, line := range []string{
		"  ceddoskip watch " + optionStyle.Render("[options]") + " <video url>",
		"  ceddoskip analyze " + optionStyle.Render("[options]") + " <video url | file>",
		"  ceddoskip history " + optionStyle.Render("[-video id]"),
		"  ceddoskip version",
	} {
		fmt.Println(line)
	}
	fmt.Println()
	fmt.Println(helpStyle.Render("Common options:"))
	for _, line := range []string{
		"  " + optionStyle.Render("-debug") + "          enable debug logging",
		"  " + optionStyle.Render("-player") + "         mpv or browser (watch only)",
		"  " + optionStyle.Render("-rate") + "           shadow playback rate (default 16)",
		"  " + optionStyle.Render("-threshold") + "      close-match count that means the overlay is present",
		"  " + optionStyle.Render("-metrics-addr") + "   serve prometheus metrics on this address",
		"  " + optionStyle.Render("-perf") + "           print a loop timing report on exit",
	} {
		fmt.Println(line)
	}
	fmt.Println()
	fmt.Println("Every option can also be set through a CEDDOSKIP_* environment variable.")
}

// PromptVideoURL asks the user for a video URL when none was passed.
func PromptVideoURL() (string, error) {
	label := "Video URL"
	if runtime.GOOS == "windows" {
		return getSimpleInput(label)
	}

	prompt := promptui.Prompt{
		Label: promptStyle.Render(label),
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("a URL is required")
			}
			return nil
		},
	}

	value, err := prompt.Run()
	if err != nil {
		return "", err
	}
	fmt.Println(successStyle.Render("✓ " + value))
	return strings.TrimSpace(value), nil
}

// getSimpleInput provides a fallback input method for Windows
func getSimpleInput(label string) (string, error) {
	fmt.Print(promptStyle.Render(label + ": "))

	reader := bufio.NewReader(os.Stdin)
	value, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("a URL is required")
	}
	fmt.Println(successStyle.Render("✓ " + value))
	return value, nil
}
