package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mchmarny/menulogic/pkg/logic"
	"github.com/mchmarny/menulogic/pkg/menu"
)

// LoadMenu reads a YAML menu definition from path.
func LoadMenu(path string) (*menu.Menu, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read menu %s: %w", path, err)
	}
	m, err := ParseMenu(data)
	if err != nil {
		return nil, fmt.Errorf("config: menu %s: %w", path, err)
	}
	return m, nil
}

// ParseMenu decodes a YAML menu definition. Unknown fields are rejected and
// every item needs a unique, non-blank ID. Conditions are not validated
// here; see CheckMenu.
func ParseMenu(data []byte) (*menu.Menu, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m menu.Menu
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty menu definition")
		}
		return nil, fmt.Errorf("decode: %w", err)
	}

	seen := make(map[string]int, len(m.Items))
	for i, item := range m.Items {
		id := strings.TrimSpace(item.ID)
		if id == "" {
			return nil, fmt.Errorf("item %d has no id", i+1)
		}
		if first, dup := seen[id]; dup {
			return nil, fmt.Errorf("item %d reuses id %q of item %d", i+1, id, first+1)
		}
		seen[id] = i
		m.Items[i].ID = id
		m.Items[i].ParentID = strings.TrimSpace(item.ParentID)
	}
	return &m, nil
}

// Problem is a defect found by CheckMenu.
type Problem struct {
	ID      string
	Title   string
	Message string
	Err     error
}

func (p Problem) String() string {
	if p.Title != "" {
		return fmt.Sprintf("%s (%s): %s", p.ID, p.Title, p.Message)
	}
	return fmt.Sprintf("%s: %s", p.ID, p.Message)
}

// CheckMenu compiles every condition and flags parents that do not exist
// and parent cycles, in item order.
func CheckMenu(m *menu.Menu, c logic.Compiler) []Problem {
	var problems []Problem

	index := make(map[string]menu.Item, len(m.Items))
	for _, item := range m.Items {
		index[item.ID] = item
	}

	for _, item := range m.Items {
		if strings.TrimSpace(item.Logic) != "" {
			if _, err := c.Compile(item.Logic); err != nil {
				problems = append(problems, Problem{ID: item.ID, Title: item.Title, Message: err.Error(), Err: err})
			}
		}

		if item.ParentID == menu.TopLevel {
			continue
		}
		if _, ok := index[item.ParentID]; !ok {
			if item.IsTopLevel() {
				continue
			}
			problems = append(problems, Problem{
				ID:      item.ID,
				Title:   item.Title,
				Message: fmt.Sprintf("parent %q does not exist; item is treated as top-level", item.ParentID),
			})
			continue
		}

		visited := map[string]bool{item.ID: true}
		for p := index[item.ParentID]; ; p = index[p.ParentID] {
			if visited[p.ID] {
				problems = append(problems, Problem{
					ID:      item.ID,
					Title:   item.Title,
					Message: "parent chain contains a cycle; item is never shown",
					Err:     menu.ErrCycle,
				})
				break
			}
			visited[p.ID] = true
			if _, ok := index[p.ParentID]; p.ParentID == menu.TopLevel || !ok {
				break
			}
		}
	}
	return problems
}
