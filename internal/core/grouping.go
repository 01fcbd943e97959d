package core

import (
	"fmt"
	"strconv"
	"sync"
)

// AccessorKind tells how a GroupKey reads its title from a Bill.
type AccessorKind int

const (
	// Direct keys read a flat field of the bill (type, year).
	Direct AccessorKind = iota
	// Nested keys read a field of a referenced entity (bank.name, group.name).
	Nested
)

// GroupKey selects the grouping title of a bill. Key names the field for
// Direct accessors and Path names it for Nested ones; Resolve is bound once
// per key, so grouping never evaluates property paths at runtime.
type GroupKey struct {
	Kind    AccessorKind
	Key     string
	Path    []string
	Resolve func(Bill) string
}

func (k GroupKey) String() string {
	if k.Kind == Nested {
		out := ""
		for i, p := range k.Path {
			if i > 0 {
				out += "."
			}
			out += p
		}
		return out
	}
	return k.Key
}

var (
	GroupByBank = GroupKey{
		Kind:    Nested,
		Key:     "bank",
		Path:    []string{"bank", "name"},
		Resolve: func(b Bill) string { return b.Bank.Name },
	}
	GroupByGroup = GroupKey{
		Kind:    Nested,
		Key:     "group",
		Path:    []string{"group", "name"},
		Resolve: func(b Bill) string { return b.Group.Name },
	}
	GroupByType = GroupKey{
		Kind:    Direct,
		Key:     "type",
		Resolve: func(b Bill) string { return string(b.Type) },
	}
	GroupByYear = GroupKey{
		Kind:    Direct,
		Key:     "year",
		Resolve: func(b Bill) string { return strconv.Itoa(b.Year) },
	}
)

// groupKeys maps the filter names accepted by dashboards to accessors.
var (
	groupKeysMu sync.RWMutex
	groupKeys   = map[string]GroupKey{
		"bank":  GroupByBank,
		"group": GroupByGroup,
		"type":  GroupByType,
		"year":  GroupByYear,
	}
)

// LookupGroupKey returns the accessor registered under name.
func LookupGroupKey(name string) (GroupKey, error) {
	groupKeysMu.RLock()
	k, ok := groupKeys[name]
	groupKeysMu.RUnlock()
	if !ok {
		return GroupKey{}, fmt.Errorf("unknown group key: %s", name)
	}
	return k, nil
}

// RegisterGroupKey adds or replaces a grouping accessor.
func RegisterGroupKey(name string, key GroupKey) {
	groupKeysMu.Lock()
	defer groupKeysMu.Unlock()
	groupKeys[name] = key
}

// BillGroup is one tab of a grouped bill list.
type BillGroup struct {
	Title string
	Bills []Bill
}

// GroupSummary is a BillGroup with its folded figures.
type GroupSummary struct {
	Title   string
	Bills   []Bill
	Summary Summary
}

// MapBillListByFilter groups bills by key. Group titles keep the order in
// which they are first seen and each title appears once. A key without a
// resolver puts every bill into a single untitled group.
func MapBillListByFilter(bills []Bill, key GroupKey) []BillGroup {
	resolve := key.Resolve
	if resolve == nil {
		resolve = func(Bill) string { return "" }
	}
	var groups []BillGroup
	index := make(map[string]int)
	for _, b := range bills {
		title := resolve(b)
		i, ok := index[title]
		if !ok {
			i = len(groups)
			index[title] = i
			groups = append(groups, BillGroup{Title: title})
		}
		groups[i].Bills = append(groups[i].Bills, b)
	}
	return groups
}

// RollUp groups bills by key and folds each bucket's expenses. Inputs are
// not modified, so an expense rendered in several buckets is counted once
// per bucket and never accumulated across them.
func RollUp(bills []Bill, key GroupKey) []GroupSummary {
	groups := MapBillListByFilter(bills, key)
	out := make([]GroupSummary, len(groups))
	for i, g := range groups {
		out[i] = GroupSummary{
			Title:   g.Title,
			Bills:   g.Bills,
			Summary: SummarizeBills(g.Bills),
		}
	}
	return out
}
