package persona

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const frontMatterDelim = "---"

// DirSource loads personas from *.md files in a directory
type DirSource struct {
	Dir           string
	DefaultModel  string
	ModelMap      map[string]string
	FinalReviewer string
	Logger        zerolog.Logger

	schema gojsonschema.JSONLoader
}

type frontMatter struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Model string `yaml:"model"`
}

// NewDirSource creates a loader for dir
func NewDirSource(dir, defaultModel, finalReviewer string, modelMap map[string]string, logger zerolog.Logger) *DirSource {
	return &DirSource{
		Dir:           dir,
		DefaultModel:  defaultModel,
		ModelMap:      modelMap,
		FinalReviewer: finalReviewer,
		Logger:        logger.With().Str("component", "persona-loader").Logger(),
		schema:        gojsonschema.NewStringLoader(FrontMatterSchema),
	}
}

// Load reads every persona file in name order
func (s *DirSource) Load(ctx context.Context) (*Roster, error) {
	paths, err := filepath.Glob(filepath.Join(s.Dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("failed to list persona files: %w", err)
	}
	if _, err := os.Stat(s.Dir); err != nil {
		return nil, fmt.Errorf("persona directory unreadable: %w", err)
	}
	sort.Strings(paths)

	personas := make([]Persona, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := s.LoadFile(path)
		if err != nil {
			return nil, err
		}
		personas = append(personas, p)
	}

	if len(personas) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoPersonas, s.Dir)
	}

	roster, err := NewRoster(personas, s.FinalReviewer)
	if err != nil {
		return nil, err
	}
	if _, ok := roster.FinalReviewer(); !ok && s.FinalReviewer != "" {
		s.Logger.Warn().Str("final_reviewer", s.FinalReviewer).Msg("Final reviewer not found in roster")
	}

	s.Logger.Info().Int("count", roster.Len()).Str("dir", s.Dir).Msg("Loaded personas")
	return roster, nil
}

// LoadFile parses a single persona file
func (s *DirSource) LoadFile(path string) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("failed to read persona file: %w", err)
	}

	header, body, err := splitFrontMatter(data)
	if err != nil {
		return Persona{}, fmt.Errorf("%s: %w", path, err)
	}

	var fm frontMatter
	if len(header) > 0 {
		if err := s.validate(header); err != nil {
			return Persona{}, fmt.Errorf("%s: %w", path, err)
		}
		if err := yaml.Unmarshal(header, &fm); err != nil {
			return Persona{}, fmt.Errorf("%s: failed to parse front matter: %w", path, err)
		}
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	p := Persona{
		ID:          fm.ID,
		Name:        fm.Name,
		Model:       fm.Model,
		Description: strings.TrimSpace(string(body)),
	}
	if p.ID == "" {
		p.ID = stem
	}
	if p.Name == "" {
		p.Name = DisplayName(stem)
	}
	if p.Model == "" {
		p.Model = s.ModelMap[p.ID]
	}
	if p.Model == "" {
		p.Model = s.DefaultModel
	}
	return p, nil
}

func (s *DirSource) validate(header []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(header, &doc); err != nil {
		return fmt.Errorf("failed to parse front matter: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	schema := s.schema
	if schema == nil {
		schema = gojsonschema.NewStringLoader(FrontMatterSchema)
	}
	result, err := gojsonschema.Validate(schema, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid front matter: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// splitFrontMatter separates a leading "---" delimited YAML block from the body
func splitFrontMatter(data []byte) (header, body []byte, err error) {
	trimmed := bytes.TrimLeft(data, "\ufeff \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte(frontMatterDelim)) {
		return nil, data, nil
	}

	rest := trimmed[len(frontMatterDelim):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) > 0 {
		return nil, data, nil
	}
	rest = rest[nl+1:]

	if bytes.HasPrefix(rest, []byte(frontMatterDelim)) {
		return nil, skipLine(rest), nil
	}
	end := bytes.Index(rest, []byte("\n"+frontMatterDelim))
	if end < 0 {
		return nil, nil, fmt.Errorf("unterminated front matter")
	}
	return rest[:end], skipLine(rest[end+1:]), nil
}

func skipLine(b []byte) []byte {
	if nl := bytes.IndexByte(b, '\n'); nl >= 0 {
		return b[nl+1:]
	}
	return nil
}

// DisplayName derives a persona name from a file stem: "the-skeptic" becomes "The Skeptic"
func DisplayName(stem string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(stem, "-", " "))
}
