// Package curriculum loads the class/subject/chapter catalogue.
package curriculum

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/nctb-tutor/internal/core/domain"
)

// Load returns the built-in curriculum when path is empty; otherwise the
// YAML file at path replaces it entirely.
func Load(path string) (domain.Curriculum, error) {
	if strings.TrimSpace(path) == "" {
		return domain.DefaultCurriculum(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (domain.Curriculum, error) {
	var c domain.Curriculum
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse curriculum yaml: %w", err)
	}
	if len(c) == 0 {
		return nil, fmt.Errorf("curriculum yaml defines no classes")
	}
	for class, subjects := range c {
		if len(subjects) == 0 {
			return nil, fmt.Errorf("curriculum class %q has no subjects", class)
		}
	}
	return c, nil
}
