// Package seating inspects model-proposed table layouts for guests that were
// marked as not getting along. It only reports; layouts are never modified.
package seating

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"weddingplanner/internal/domain"
)

// Conflict is a pair of guests seated together although one of them lists the
// other as a potential conflict.
type Conflict struct {
	TableID   int    `json:"tableId"`
	TableName string `json:"tableName"`
	Guest     string `json:"guest"`
	With      string `json:"with"`
}

// namer normalises guest names for comparison. A Caser is stateful, so each
// call builds its own.
func namer() func(string) string {
	fold := cases.Fold()
	return func(name string) string {
		return fold.String(strings.Join(strings.Fields(name), " "))
	}
}

// FindConflicts reports every conflicting pair sitting at the same table, once
// per pair and table. Conflict lists are taken from the roster and from the
// guests embedded in the tables; names are compared case-insensitively.
func FindConflicts(tables []domain.Table, roster []domain.Guest) []Conflict {
	key := namer()
	avoid := make(map[string]map[string]struct{})
	note := func(g domain.Guest) {
		k := key(g.Name)
		if k == "" {
			return
		}
		for _, other := range g.ConflictPotential {
			ok := key(other)
			if ok == "" || ok == k {
				continue
			}
			if avoid[k] == nil {
				avoid[k] = make(map[string]struct{})
			}
			avoid[k][ok] = struct{}{}
		}
	}
	for _, g := range roster {
		note(g)
	}
	for _, t := range tables {
		for _, g := range t.Guests {
			note(g)
		}
	}

	var out []Conflict
	for _, t := range tables {
		seen := make(map[[2]string]struct{})
		for i, a := range t.Guests {
			ka := key(a.Name)
			for _, b := range t.Guests[i+1:] {
				kb := key(b.Name)
				if ka == "" || kb == "" || ka == kb {
					continue
				}
				if !conflicting(avoid, ka, kb) {
					continue
				}
				pair := [2]string{ka, kb}
				if kb < ka {
					pair = [2]string{kb, ka}
				}
				if _, dup := seen[pair]; dup {
					continue
				}
				seen[pair] = struct{}{}
				out = append(out, Conflict{TableID: t.ID, TableName: t.Name, Guest: a.Name, With: b.Name})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TableID < out[j].TableID })
	return out
}

func conflicting(avoid map[string]map[string]struct{}, a, b string) bool {
	if _, ok := avoid[a][b]; ok {
		return true
	}
	_, ok := avoid[b][a]
	return ok
}

// Unseated lists roster guests that appear at no table.
func Unseated(tables []domain.Table, roster []domain.Guest) []string {
	key := namer()
	seated := make(map[string]struct{})
	for _, t := range tables {
		for _, g := range t.Guests {
			seated[key(g.Name)] = struct{}{}
		}
	}
	var out []string
	for _, g := range roster {
		if _, ok := seated[key(g.Name)]; !ok {
			out = append(out, g.Name)
		}
	}
	return out
}
