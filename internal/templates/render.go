package templates

import (
	"bufio"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"regexp"
	"strings"
	"sync"

	"realestate/internal/money"
)

var (
	lineNumberRe   = regexp.MustCompile(`:(\d+):`)
	templateCallRe = regexp.MustCompile(`\{\{-?\s*template\s+"([^"]+)"`)
)

// Renderer handles template rendering
type Renderer struct {
	mu        sync.RWMutex
	templates *template.Template
	debug     bool
	fsys      fs.FS
}

// New creates a renderer over a filesystem holding layouts/, pages/,
// partials/ and components/ directories. In debug mode templates are
// re-parsed on every render.
func New(fsys fs.FS, debug bool) (*Renderer, error) {
	r := &Renderer{
		debug: debug,
		fsys:  fsys,
	}

	if err := r.loadTemplates(); err != nil {
		return nil, err
	}

	return r, nil
}

// getFuncMap returns the template function map
func getFuncMap() template.FuncMap {
	return template.FuncMap{
		"formatMoney":      money.Format,
		"formatMoneyWhole": money.FormatWhole,
		"formatPercent":    formatPercent,
		"add":              add,
		"percentOf":        percentOf,
	}
}

// loadTemplates parses all templates with strict validation
func (r *Renderer) loadTemplates() error {
	tmpl := template.New("").Funcs(getFuncMap())

	var templateFiles []string
	for _, subdir := range []string{"layouts", "pages", "partials", "components"} {
		matches, err := fs.Glob(r.fsys, path.Join(subdir, "*.html"))
		if err != nil {
			return fmt.Errorf("error globbing %s: %w", subdir, err)
		}
		templateFiles = append(templateFiles, matches...)
	}

	if len(templateFiles) == 0 {
		return fmt.Errorf("no template files found")
	}

	var parseErrors []string
	for _, file := range templateFiles {
		content, err := fs.ReadFile(r.fsys, file)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("%s: failed to read: %v", file, err))
			continue
		}

		if _, err := tmpl.New(path.Base(file)).Parse(string(content)); err != nil {
			parseErrors = append(parseErrors, formatTemplateError(file, string(content), err))
		}
	}

	if len(parseErrors) > 0 {
		for _, e := range parseErrors {
			slog.Error("template parse error", "detail", e)
		}
		return fmt.Errorf("template parsing failed with %d error(s)", len(parseErrors))
	}

	if err := r.validateTemplateReferences(tmpl, templateFiles); err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()
	slog.Debug("templates loaded", "files", len(templateFiles))
	return nil
}

// formatTemplateError formats a template error with file context
func formatTemplateError(file, content string, err error) string {
	var sb strings.Builder
	errStr := err.Error()
	lineNum := extractLineNumber(errStr)

	fmt.Fprintf(&sb, "%s: %s", file, errStr)
	if lineNum <= 0 {
		return sb.String()
	}

	lines := strings.Split(content, "\n")
	start := max(lineNum-3, 0)
	end := min(lineNum+2, len(lines))
	for i := start; i < end; i++ {
		marker := "   "
		if i+1 == lineNum {
			marker = ">>>"
		}
		fmt.Fprintf(&sb, "\n  %s %4d | %s", marker, i+1, lines[i])
	}
	return sb.String()
}

// extractLineNumber tries to extract a line number from a template error
func extractLineNumber(errStr string) int {
	matches := lineNumberRe.FindStringSubmatch(errStr)
	if len(matches) >= 2 {
		var lineNum int
		fmt.Sscanf(matches[1], "%d", &lineNum)
		return lineNum
	}
	return 0
}

// validateTemplateReferences checks that all {{template "name"}} calls reference defined templates
func (r *Renderer) validateTemplateReferences(tmpl *template.Template, files []string) error {
	defined := make(map[string]bool)
	for _, t := range tmpl.Templates() {
		if t.Name() != "" {
			defined[t.Name()] = true
		}
	}

	var refErrors []string
	for _, file := range files {
		content, err := fs.ReadFile(r.fsys, file)
		if err != nil {
			continue
		}

		scanner := bufio.NewScanner(strings.NewReader(string(content)))
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			for _, match := range templateCallRe.FindAllStringSubmatch(scanner.Text(), -1) {
				if !defined[match[1]] {
					refErrors = append(refErrors, fmt.Sprintf("%s:%d: undefined template %q", file, lineNum, match[1]))
				}
			}
		}
	}

	if len(refErrors) > 0 {
		for _, e := range refErrors {
			slog.Error("template reference error", "detail", e)
		}
		return fmt.Errorf("found %d undefined template reference(s)", len(refErrors))
	}
	return nil
}

// Reload reloads templates (useful for development)
func (r *Renderer) Reload() error {
	return r.loadTemplates()
}

func (r *Renderer) current() *template.Template {
	if r.debug {
		if err := r.loadTemplates(); err != nil {
			slog.Error("reloading templates", "error", err)
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates
}

// Render renders a full page
func (r *Renderer) Render(w http.ResponseWriter, name string, data interface{}) error {
	return r.execute(w, name, data)
}

// RenderPartial renders a partial template (no base layout)
func (r *Renderer) RenderPartial(w http.ResponseWriter, name string, data interface{}) error {
	return r.execute(w, name, data)
}

func (r *Renderer) execute(w http.ResponseWriter, name string, data interface{}) error {
	var buf strings.Builder
	if err := r.current().ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("rendering template", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := io.WriteString(w, buf.String())
	return err
}

// RenderToString renders a template to a string
func (r *Renderer) RenderToString(name string, data interface{}) (string, error) {
	var buf strings.Builder
	if err := r.current().ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Template functions

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func add(a, b interface{}) interface{} {
	// If both are ints, return int to preserve type for comparisons
	if ai, ok := a.(int); ok {
		if bi, ok := b.(int); ok {
			return ai + bi
		}
	}
	return toFloat(a) + toFloat(b)
}

func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float64:
		return val
	case float32:
		return float64(val)
	default:
		return 0
	}
}

func percentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return (part / whole) * 100
}
