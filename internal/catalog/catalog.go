// Package catalog loads the static route catalog that maps route names to GPX files.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/aidar/challenge-portal/internal/domain"
)

// RouteInfo описывает один маршрут события
type RouteInfo struct {
	Name        domain.Route `yaml:"name" json:"name"`
	Difficulty  string       `yaml:"difficulty" json:"difficulty"`
	Colour      string       `yaml:"colour" json:"colour"`
	GPXPath     string       `yaml:"gpx" json:"-"`
	AscentHintM float64      `yaml:"ascent_hint_m" json:"ascent_hint_m"`
	Note        string       `yaml:"note,omitempty" json:"note,omitempty"`
}

// Catalog маршруты в порядке отображения
type Catalog struct {
	routes []RouteInfo
	byName map[domain.Route]RouteInfo
}

type catalogFile struct {
	Routes []RouteInfo `yaml:"routes"`
}

// Load читает каталог из YAML файла. Относительные пути к GPX считаются от директории каталога.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route catalog: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i := range c.routes {
		if !filepath.IsAbs(c.routes[i].GPXPath) {
			c.routes[i].GPXPath = filepath.Join(base, c.routes[i].GPXPath)
		}
		c.byName[c.routes[i].Name] = c.routes[i]
	}

	return c, nil
}

// Parse разбирает каталог из YAML
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse route catalog: %w", err)
	}

	if len(file.Routes) == 0 {
		return nil, fmt.Errorf("route catalog is empty")
	}

	c := &Catalog{
		routes: make([]RouteInfo, 0, len(file.Routes)),
		byName: make(map[domain.Route]RouteInfo, len(file.Routes)),
	}
	for _, r := range file.Routes {
		if !r.Name.Valid() {
			return nil, fmt.Errorf("route catalog: %w: %q", domain.ErrUnknownRoute, r.Name)
		}
		if _, dup := c.byName[r.Name]; dup {
			return nil, fmt.Errorf("route catalog: duplicate route %q", r.Name)
		}
		if r.GPXPath == "" {
			return nil, fmt.Errorf("route catalog: route %q has no gpx path", r.Name)
		}
		c.routes = append(c.routes, r)
		c.byName[r.Name] = r
	}

	return c, nil
}

// Routes возвращает маршруты в порядке отображения
func (c *Catalog) Routes() []RouteInfo {
	out := make([]RouteInfo, len(c.routes))
	copy(out, c.routes)
	return out
}

// Get возвращает маршрут по имени
func (c *Catalog) Get(name domain.Route) (RouteInfo, error) {
	r, ok := c.byName[name]
	if !ok {
		return RouteInfo{}, domain.ErrUnknownRoute
	}
	return r, nil
}

// Default возвращает маршрут по умолчанию для шага выбора маршрута:
// маршрут команды, затем ранее выбранный, иначе первый в каталоге
func (c *Catalog) Default(teamRoute, previous domain.Route) domain.Route {
	if _, ok := c.byName[teamRoute]; ok {
		return teamRoute
	}
	if _, ok := c.byName[previous]; ok {
		return previous
	}
	return c.routes[0].Name
}
