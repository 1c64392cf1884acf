package scheduler

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/google/uuid"
)

// scriptsFS embeds the default notebook job scripts.
//
//go:embed scripts/*.sh.tmpl
var scriptsFS embed.FS

// ScriptName identifies a job script template.
type ScriptName string

const (
	ScriptSlurmNotebook ScriptName = "slurm_notebook"
	ScriptOARNotebook   ScriptName = "oar_notebook"
)

// ScriptSource indicates where a template was loaded from.
type ScriptSource string

const (
	ScriptSourceUser     ScriptSource = "user"
	ScriptSourceEmbedded ScriptSource = "embedded"
)

// heredocMarker terminates the uploaded script body.
const heredocMarker = "JOBSCRIPT"

// ScriptData is the template input for a notebook job script.
type ScriptData struct {
	Name     string
	Email    string
	Time     string
	Port     int
	Cores    int
	GPUType  string
	GPUs     int
	Property string
}

// ScriptSet holds the parsed job script templates.
type ScriptSet struct {
	templates map[ScriptName]*template.Template
	sources   map[ScriptName]ScriptSource
}

var (
	defaultScripts     *ScriptSet
	defaultScriptsOnce sync.Once
)

// DefaultScripts returns the embedded templates.
func DefaultScripts() *ScriptSet {
	defaultScriptsOnce.Do(func() {
		set, err := LoadScripts("")
		if err != nil {
			panic(fmt.Sprintf("embedded job scripts: %v", err))
		}
		defaultScripts = set
	})
	return defaultScripts
}

// LoadScripts loads every template, preferring {dir}/{name}.sh.tmpl over the
// embedded copy. An empty dir loads only embedded templates.
func LoadScripts(dir string) (*ScriptSet, error) {
	set := &ScriptSet{
		templates: make(map[ScriptName]*template.Template),
		sources:   make(map[ScriptName]ScriptSource),
	}
	for _, name := range []ScriptName{ScriptSlurmNotebook, ScriptOARNotebook} {
		text, source, err := readScript(dir, name)
		if err != nil {
			return nil, err
		}
		tmpl, err := template.New(string(name)).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parse script %s (%s): %w", name, source, err)
		}
		set.templates[name] = tmpl
		set.sources[name] = source
	}
	return set, nil
}

func readScript(dir string, name ScriptName) (string, ScriptSource, error) {
	file := string(name) + ".sh.tmpl"
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err == nil {
			return string(data), ScriptSourceUser, nil
		}
		if !os.IsNotExist(err) {
			return "", "", fmt.Errorf("read script %s: %w", name, err)
		}
	}
	data, err := scriptsFS.ReadFile("scripts/" + file)
	if err != nil {
		return "", "", fmt.Errorf("embedded script %s: %w", name, err)
	}
	return string(data), ScriptSourceEmbedded, nil
}

// Source reports where the named template came from.
func (s *ScriptSet) Source(name ScriptName) ScriptSource {
	return s.sources[name]
}

// Render executes the named template.
func (s *ScriptSet) Render(name ScriptName, data ScriptData) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown script %s", name)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render script %s: %w", name, err)
	}
	return b.String(), nil
}

// uploadAndSubmit builds one shell command that writes body to a fresh file
// in the remote home directory, makes it executable and then runs submit
// with every "{script}" replaced by that file's path.
func uploadAndSubmit(body, prefix, submit string) string {
	file := fmt.Sprintf("~/.%s_%s.sh", prefix, uuid.NewString()[:8])

	var b strings.Builder
	fmt.Fprintf(&b, "cat > %s << '%s'\n", file, heredocMarker)
	b.WriteString(strings.TrimRight(body, "\n"))
	fmt.Fprintf(&b, "\n%s\n", heredocMarker)
	fmt.Fprintf(&b, "chmod +x %s\n", file)
	b.WriteString(strings.ReplaceAll(submit, "{script}", file))
	return b.String()
}
