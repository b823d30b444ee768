package model

import "sort"

// DefaultSection is used for links that appear before the first section header.
const DefaultSection = "default"

// ManifestLink is one linked resource inside a manifest section.
type ManifestLink struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Manifest is the parsed structure of a manifest document: named sections of
// linked resources, in discovery order. It is built once per crawl.
type Manifest struct {
	Sections map[string][]ManifestLink `json:"sections"`
	Order    []string                  `json:"order"`
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{Sections: map[string][]ManifestLink{}}
}

// AddLink appends a link to the named section, registering the section on
// first use.
func (m *Manifest) AddLink(section string, link ManifestLink) {
	if _, ok := m.Sections[section]; !ok {
		m.Order = append(m.Order, section)
	}
	m.Sections[section] = append(m.Sections[section], link)
}

// SectionNames returns the section names in discovery order.
func (m *Manifest) SectionNames() []string {
	names := make([]string, len(m.Order))
	copy(names, m.Order)
	return names
}

// TotalLinks counts links across all sections.
func (m *Manifest) TotalLinks() int {
	total := 0
	for _, links := range m.Sections {
		total += len(links)
	}
	return total
}

// UniqueURLs returns the deduplicated URLs of all sections, sorted for
// deterministic fetch order.
func (m *Manifest) UniqueURLs() []string {
	seen := map[string]bool{}
	var urls []string
	for _, links := range m.Sections {
		for _, link := range links {
			if !seen[link.URL] {
				seen[link.URL] = true
				urls = append(urls, link.URL)
			}
		}
	}
	sort.Strings(urls)
	return urls
}

// Filter returns a manifest containing only the wanted sections, preserving
// discovery order. A nil or empty filter returns the manifest unchanged.
func (m *Manifest) Filter(wanted []string) *Manifest {
	if len(wanted) == 0 {
		return m
	}
	wantedSet := map[string]bool{}
	for _, name := range wanted {
		wantedSet[name] = true
	}
	filtered := NewManifest()
	for _, name := range m.Order {
		if wantedSet[name] {
			for _, link := range m.Sections[name] {
				filtered.AddLink(name, link)
			}
		}
	}
	return filtered
}
