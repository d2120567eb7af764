package portal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
)

// Sphere is a catalog of datasets on the portal.
type Sphere struct {
	ID     string
	Name   string
	NameEn string
	Count  int
}

// CatalogURL is the listing page of the sphere for the given language
// ("eng", "ru", "uz").
func (s Sphere) CatalogURL(baseURL, lang string) string {
	return fmt.Sprintf("%s/%s/spheres/%s", strings.TrimSuffix(baseURL, "/"), lang, s.ID)
}

// DisplayName prefers the english name.
func (s Sphere) DisplayName() string {
	if s.NameEn != "" {
		return s.NameEn
	}
	return s.Name
}

var (
	idKeys     = []string{"id", "_id", "sphereid"}
	nameKeys   = []string{"name", "nameuz", "nameru", "title"}
	nameEnKeys = []string{"nameen", "name_en", "titleen"}
	countKeys  = []string{"count", "datasetcount", "datacount", "datasetscount"}
	listKeys   = []string{"result", "data", "items", "spheres"}
)

// DecodeSpheres decodes the sphere list response. The list may be the top
// level value or wrapped in an object, field names are matched case
// insensitively and entries without an id are dropped.
func DecodeSpheres(data []byte) ([]Sphere, error) {
	var top any
	err := json.Unmarshal(data, &top)
	if err != nil {
		return nil, fmt.Errorf("decode sphere list: %w", err)
	}

	list, ok := findList(top)
	if !ok {
		return nil, fmt.Errorf("decode sphere list: no list of spheres in response")
	}

	var spheres []Sphere
	for _, item := range list {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		lowered := make(map[string]any, len(fields))
		for key, value := range fields {
			lowered[strings.ToLower(key)] = value
		}

		sphere := Sphere{
			ID:     stringField(lowered, idKeys),
			Name:   stringField(lowered, nameKeys),
			NameEn: stringField(lowered, nameEnKeys),
		}
		count, _ := strconv.Atoi(stringField(lowered, countKeys))
		sphere.Count = count
		if sphere.ID == "" {
			continue
		}
		spheres = append(spheres, sphere)
	}
	return spheres, nil
}

func findList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case map[string]any:
		for key, inner := range v {
			for _, listKey := range listKeys {
				if strings.EqualFold(key, listKey) {
					if list, ok := findList(inner); ok {
						return list, true
					}
				}
			}
		}
	}
	return nil, false
}

func stringField(fields map[string]any, keys []string) string {
	for _, key := range keys {
		switch v := fields[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// Match returns the sphere whose name is the most similar to name, using
// Jaro-Winkler similarity over both the local and english names. ok is false
// when nothing reaches minSimilarity.
func Match(spheres []Sphere, name string, minSimilarity float64) (best Sphere, similarity float64, ok bool) {
	target := strings.ToLower(strings.TrimSpace(name))
	for _, sphere := range spheres {
		for _, candidate := range []string{sphere.Name, sphere.NameEn} {
			if candidate == "" {
				continue
			}
			score := matchr.JaroWinkler(strings.ToLower(candidate), target, false)
			if score > similarity {
				best = sphere
				similarity = score
			}
		}
	}
	if similarity < minSimilarity {
		return Sphere{}, similarity, false
	}
	return best, similarity, true
}
