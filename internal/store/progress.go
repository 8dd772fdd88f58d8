package store

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Section names used by the progress log.
const (
	SectionPatterns     = "Patterns"
	SectionIterationLog = "Iteration Log"
)

// ProgressSection is one named section of the progress log.
type ProgressSection struct {
	Name string
	Body string
}

// ProgressLog is the typed form of the free-form progress document: an
// ordered list of named sections. Parsing and serializing round-trip, which
// keeps the append path honest about what it touches.
type ProgressLog struct {
	Title    string
	Sections []ProgressSection
}

// NewProgressLog returns a progress log seeded with the standard sections.
func NewProgressLog() *ProgressLog {
	return &ProgressLog{
		Title: "Progress",
		Sections: []ProgressSection{
			{Name: SectionPatterns, Body: ""},
			{Name: SectionIterationLog, Body: ""},
		},
	}
}

// ParseProgress builds a typed document from raw markdown. Content before
// the first "## " header becomes the title line (a leading "# " is
// stripped); every "## " header starts a new section whose body runs until
// the next header.
func ParseProgress(raw string) *ProgressLog {
	p := &ProgressLog{}
	lines := strings.Split(raw, "\n")

	var current *ProgressSection
	var body []string

	flush := func() {
		if current != nil {
			current.Body = strings.TrimRight(strings.Join(body, "\n"), "\n")
			p.Sections = append(p.Sections, *current)
		}
		body = nil
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "## ") {
			flush()
			current = &ProgressSection{Name: strings.TrimSpace(line[3:])}
			continue
		}
		if current == nil {
			if p.Title == "" && strings.HasPrefix(line, "# ") {
				p.Title = strings.TrimSpace(line[2:])
			}
			continue
		}
		body = append(body, line)
	}
	flush()

	return p
}

// Serialize renders the document back to markdown.
func (p *ProgressLog) Serialize() string {
	var b strings.Builder
	if p.Title != "" {
		b.WriteString("# " + p.Title + "\n")
	}
	for _, sec := range p.Sections {
		b.WriteString("\n## " + sec.Name + "\n")
		if sec.Body != "" {
			b.WriteString(sec.Body + "\n")
		}
	}
	return b.String()
}

// Section returns a pointer to the named section, or nil.
func (p *ProgressLog) Section(name string) *ProgressSection {
	for i := range p.Sections {
		if p.Sections[i].Name == name {
			return &p.Sections[i]
		}
	}
	return nil
}

// AppendEntry appends a block of text to the named section, creating the
// section if it does not exist.
func (p *ProgressLog) AppendEntry(section, entry string) {
	sec := p.Section(section)
	if sec == nil {
		p.Sections = append(p.Sections, ProgressSection{Name: section})
		sec = &p.Sections[len(p.Sections)-1]
	}
	if sec.Body == "" {
		sec.Body = entry
		return
	}
	sec.Body = sec.Body + "\n" + entry
}

// Progress loads the progress log, returning a freshly seeded document when
// the file is absent or unreadable.
func (s *Store) Progress() *ProgressLog {
	data, err := os.ReadFile(s.Path(ProgressFile))
	if err != nil {
		return NewProgressLog()
	}
	return ParseProgress(string(data))
}

// SaveProgress persists the progress log.
func (s *Store) SaveProgress(p *ProgressLog) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(s.Path(ProgressFile), []byte(p.Serialize()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", ProgressFile, err)
	}
	return nil
}

// AppendIterationEntry records a per-iteration note in the iteration log
// section. Empty notes are skipped.
func (s *Store) AppendIterationEntry(iteration int, note string) error {
	if note == "" {
		return nil
	}
	p := s.Progress()
	timestamp := time.Now().Local().Format("2006-01-02 15:04:05")
	entry := fmt.Sprintf("### Iteration %d (%s)\n%s", iteration, timestamp, note)
	p.AppendEntry(SectionIterationLog, entry)
	return s.SaveProgress(p)
}
