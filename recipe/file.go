package recipe

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Step is one entry of a recipe file.
//
//	Steps:
//	  - { Kind: arith, A: 1.1, B: 2.3, Op: add }
//	  - { Kind: gcd, A: 48, B: 18 }
type Step struct {
	Kind string  `yaml:"Kind"`
	A    float64 `yaml:"A"`
	B    float64 `yaml:"B"`
	Op   string  `yaml:"Op"`
}

type File struct {
	Steps []Step `yaml:"Steps"`
}

// LoadFile reads and converts a recipe file.
func LoadFile(path string) ([]Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read recipe file %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("can't decode recipe file %s: %w", path, err)
	}
	recipes, err := f.Recipes()
	if err != nil {
		return nil, fmt.Errorf("invalid recipe file %s: %w", path, err)
	}
	return recipes, nil
}

// Recipes converts the steps, collecting all conversion errors.
func (f File) Recipes() ([]Recipe, error) {
	if len(f.Steps) == 0 {
		return nil, errors.New("no steps")
	}
	recipes := make([]Recipe, 0, len(f.Steps))
	var errs []error
	for i, s := range f.Steps {
		r, err := s.recipe()
		if err != nil {
			errs = append(errs, fmt.Errorf("step %d: %w", i+1, err))
			continue
		}
		recipes = append(recipes, r)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return recipes, nil
}

func (s Step) recipe() (Recipe, error) {
	switch strings.ToLower(s.Kind) {
	case "arith":
		op, err := ParseOpcode(s.Op)
		if err != nil {
			return nil, err
		}
		return Arithmetic{A: float32(s.A), B: float32(s.B), Op: op}, nil
	case "gcd":
		a, err := toUint32(s.A)
		if err != nil {
			return nil, fmt.Errorf("A: %w", err)
		}
		b, err := toUint32(s.B)
		if err != nil {
			return nil, fmt.Errorf("B: %w", err)
		}
		return GCD{A: a, B: b}, nil
	}
	return nil, fmt.Errorf("unknown kind %q, want arith or gcd", s.Kind)
}

func toUint32(v float64) (uint32, error) {
	if v < 0 || v > float64(^uint32(0)) || v != float64(uint64(v)) {
		return 0, fmt.Errorf("%v is not an unsigned 32 bit integer", v)
	}
	return uint32(v), nil
}
