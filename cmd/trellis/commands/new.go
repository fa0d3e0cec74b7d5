package commands

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/danpasecinic/trellis/config"
)

//go:embed templates
var templates embed.FS

var projectName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

type project struct {
	Name   string
	Module string
}

func newNewCmd() *cobra.Command {
	var (
		module string
		dir    string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a new trellis project",
		Long: `Create a new trellis project in <dir>/<name>.

The project holds a main package, a components package with a sample
component, a controllers package with a sample controller and the
configuration file resources/config.json.

Examples:
  # Create ./shop with module path "shop"
  trellis new shop

  # Create /src/shop with a custom module path
  trellis new shop --dir /src --module github.com/acme/shop`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := project{Name: args[0], Module: module}
			if p.Module == "" {
				p.Module = p.Name
			}
			target := filepath.Join(dir, p.Name)

			if err := scaffold(target, p, force); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project %s created at %s\n", p.Name, target)
			fmt.Fprintln(out, "\nNext steps:")
			fmt.Fprintf(out, "  cd %s\n", target)
			fmt.Fprintln(out, "  go get github.com/danpasecinic/trellis@latest")
			fmt.Fprintln(out, "  go run .")
			return nil
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "Go module path (default: the project name)")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory the project is created in")
	cmd.Flags().BoolVar(&force, "force", false, "Write into an existing directory")

	return cmd
}

func scaffold(target string, p project, force bool) error {
	if !projectName.MatchString(p.Name) {
		return fmt.Errorf("invalid project name %q: use letters, digits, '-' and '_'", p.Name)
	}
	if _, err := os.Stat(target); err == nil && !force {
		return fmt.Errorf("%s already exists, use --force to write into it", target)
	}

	err := fs.WalkDir(templates, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel := strings.TrimSuffix(strings.TrimPrefix(path, "templates/"), ".tmpl")
		data, err := render(path, p)
		if err != nil {
			return err
		}

		dst := filepath.Join(target, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", rel, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cfg := config.Default()
	cfg.BasePath = p.Module
	return config.Write(filepath.Join(target, filepath.FromSlash(config.DefaultPath)), cfg)
}

func render(path string, p project) ([]byte, error) {
	tmpl, err := template.ParseFS(templates, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", path, err)
	}
	return buf.Bytes(), nil
}
