package filters

import (
	"net/url"
	"strings"

	"gorm.io/gorm"
)

// SearchFilter matches every term of the search parameter against at least one
// of Fields. Each field is a SQL condition with a single LIKE placeholder.
type SearchFilter struct {
	Param  string
	Fields []string
}

// likeEscape is the ESCAPE character used by every search condition.
const likeEscape = "!"

func (s SearchFilter) Scope(q url.Values) Scope {
	param := s.Param
	if param == "" {
		param = "search"
	}
	terms := searchTerms(q.Get(param))
	if len(terms) == 0 || len(s.Fields) == 0 {
		return func(db *gorm.DB) *gorm.DB { return db }
	}
	return func(db *gorm.DB) *gorm.DB {
		for _, term := range terms {
			pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
			args := make([]any, len(s.Fields))
			for i := range args {
				args[i] = pattern
			}
			db = db.Where("("+strings.Join(s.Fields, " OR ")+")", args...)
		}
		return db
	}
}

func searchTerms(raw string) []string {
	raw = strings.ReplaceAll(raw, "\x00", "")
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

func escapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}

// Like builds a case-insensitive substring condition on column.
func Like(column string) string {
	return "LOWER(" + column + ") LIKE ? ESCAPE '" + likeEscape + "'"
}
