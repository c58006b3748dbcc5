package registry

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidSectionOrLanguage = errors.New("invalid section or language")
	ErrInvalidCategory          = errors.New("invalid category")
)

// Category is one registered feed or feed group. A category with more than
// one URL is a meta-category merged into one stream.
type Category struct {
	Section  string
	Language string
	Name     string
	URLs     []string
}

// Resolution is the outcome of resolving a selector.
type Resolution struct {
	Section  string
	Language string
	Category string
	URLs     []string
}

// SectionInfo describes one namespace for navigation.
type SectionInfo struct {
	Name      string         `json:"name"`
	Languages []LanguageInfo `json:"languages"`
}

type LanguageInfo struct {
	Code       string   `json:"code"`
	Categories []string `json:"categories"`
}

type namespace struct {
	categories []Category
	byName     map[string]int
}

// Registry is an immutable, insertion-ordered catalog of feeds. It is safe
// for concurrent use because nothing mutates it after New returns.
type Registry struct {
	sections   []SectionInfo
	namespaces map[string]*namespace
}

// New compiles a registry from a parsed catalog file.
func New(file *File) (*Registry, error) {
	if file == nil || len(file.Sections) == 0 {
		return nil, errors.New("registry: no sections configured")
	}

	r := &Registry{namespaces: make(map[string]*namespace)}
	seenSections := make(map[string]bool)

	for _, sec := range file.Sections {
		secName := strings.TrimSpace(sec.Name)
		if secName == "" {
			return nil, errors.New("registry: section without a name")
		}
		if seenSections[secName] {
			return nil, fmt.Errorf("registry: duplicate section %q", secName)
		}
		seenSections[secName] = true

		info := SectionInfo{Name: secName}
		for _, lang := range sec.Languages {
			code := strings.TrimSpace(lang.Code)
			if code == "" {
				return nil, fmt.Errorf("registry: section %q has a language without a code", secName)
			}
			key := nsKey(secName, code)
			if _, dup := r.namespaces[key]; dup {
				return nil, fmt.Errorf("registry: duplicate language %q in section %q", code, secName)
			}
			if len(lang.Categories) == 0 {
				return nil, fmt.Errorf("registry: %s/%s has no categories", secName, code)
			}

			ns := &namespace{byName: make(map[string]int)}
			names := make([]string, 0, len(lang.Categories))
			for _, cat := range lang.Categories {
				name := strings.TrimSpace(cat.Name)
				if name == "" {
					return nil, fmt.Errorf("registry: %s/%s has a category without a name", secName, code)
				}
				if _, dup := ns.byName[name]; dup {
					return nil, fmt.Errorf("registry: duplicate category %q in %s/%s", name, secName, code)
				}
				urls := cleanURLs(cat.Feeds)
				if len(urls) == 0 {
					return nil, fmt.Errorf("registry: category %q in %s/%s has no feeds", name, secName, code)
				}

				ns.byName[name] = len(ns.categories)
				ns.categories = append(ns.categories, Category{
					Section:  secName,
					Language: code,
					Name:     name,
					URLs:     urls,
				})
				names = append(names, name)
			}

			r.namespaces[key] = ns
			info.Languages = append(info.Languages, LanguageInfo{Code: code, Categories: names})
		}
		r.sections = append(r.sections, info)
	}

	return r, nil
}

// Resolve maps a selector to its feed URLs. An empty category selects the
// first category registered for the (section, language) pair.
func (r *Registry) Resolve(section, language, category string) (Resolution, error) {
	ns, ok := r.namespaces[nsKey(section, language)]
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %s/%s", ErrInvalidSectionOrLanguage, section, language)
	}

	idx := 0
	if category != "" {
		idx, ok = ns.byName[category]
		if !ok {
			return Resolution{}, fmt.Errorf("%w: %q in %s/%s", ErrInvalidCategory, category, section, language)
		}
	}

	cat := ns.categories[idx]
	return Resolution{
		Section:  cat.Section,
		Language: cat.Language,
		Category: cat.Name,
		URLs:     append([]string(nil), cat.URLs...),
	}, nil
}

// Categories lists category names for a (section, language) pair in
// registration order.
func (r *Registry) Categories(section, language string) ([]string, error) {
	ns, ok := r.namespaces[nsKey(section, language)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrInvalidSectionOrLanguage, section, language)
	}
	names := make([]string, 0, len(ns.categories))
	for _, c := range ns.categories {
		names = append(names, c.Name)
	}
	return names, nil
}

func (r *Registry) Sections() []SectionInfo {
	out := make([]SectionInfo, 0, len(r.sections))
	for _, s := range r.sections {
		langs := make([]LanguageInfo, 0, len(s.Languages))
		for _, l := range s.Languages {
			langs = append(langs, LanguageInfo{Code: l.Code, Categories: append([]string(nil), l.Categories...)})
		}
		out = append(out, SectionInfo{Name: s.Name, Languages: langs})
	}
	return out
}

func nsKey(section, language string) string {
	return section + "\x00" + language
}

func cleanURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
