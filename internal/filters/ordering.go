package filters

import (
	"net/url"
	"strings"

	"gorm.io/gorm"
)

// OrderingFilter sorts by the client's ordering parameter, restricted to Fields
// (public name -> column). Unknown fields are dropped; Default applies when
// nothing usable remains. Tiebreak keeps page boundaries stable.
type OrderingFilter struct {
	Param    string
	Fields   map[string]string
	Default  []string
	Tiebreak string
}

func (o OrderingFilter) Scope(q url.Values) Scope {
	param := o.Param
	if param == "" {
		param = "ordering"
	}

	var terms []string
	for _, f := range strings.Split(q.Get(param), ",") {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		if _, ok := o.Fields[strings.TrimPrefix(f, "-")]; ok {
			terms = append(terms, f)
		}
	}
	if len(terms) == 0 {
		terms = o.Default
	}

	return func(db *gorm.DB) *gorm.DB {
		last := ""
		for _, t := range terms {
			dir := "ASC"
			if strings.HasPrefix(t, "-") {
				dir = "DESC"
			}
			last = dir
			db = db.Order(o.Fields[strings.TrimPrefix(t, "-")] + " " + dir)
		}
		if o.Tiebreak != "" {
			if last == "" {
				last = "ASC"
			}
			db = db.Order(o.Tiebreak + " " + last)
		}
		return db
	}
}
