package seating

import (
	"reflect"
	"testing"

	"weddingplanner/internal/domain"
)

func guest(name string, conflicts ...string) domain.Guest {
	return domain.Guest{Name: name, ConflictPotential: conflicts}
}

func TestFindConflicts(t *testing.T) {
	roster := []domain.Guest{
		guest("Tia Cotinha", "Tio Barnabé"),
		guest("Tio Barnabé", "Tia Cotinha"),
		guest("Juliana", "Noiva"),
		guest("Ana"),
		guest("Beto"),
	}

	cases := []struct {
		name   string
		tables []domain.Table
		want   []Conflict
	}{
		{
			name: "mutual conflict at one table reported once",
			tables: []domain.Table{
				{ID: 1, Name: "Família", Guests: []domain.Guest{{Name: "Tia Cotinha"}, {Name: "Tio Barnabé"}, {Name: "Ana"}}},
			},
			want: []Conflict{{TableID: 1, TableName: "Família", Guest: "Tia Cotinha", With: "Tio Barnabé"}},
		},
		{
			name: "separated guests are fine",
			tables: []domain.Table{
				{ID: 1, Name: "A", Guests: []domain.Guest{{Name: "Tia Cotinha"}, {Name: "Ana"}}},
				{ID: 2, Name: "B", Guests: []domain.Guest{{Name: "Tio Barnabé"}, {Name: "Beto"}}},
			},
		},
		{
			name: "names compared case-insensitively",
			tables: []domain.Table{
				{ID: 3, Name: "C", Guests: []domain.Guest{{Name: "tia  cotinha"}, {Name: "TIO BARNABÉ"}}},
			},
			want: []Conflict{{TableID: 3, TableName: "C", Guest: "tia  cotinha", With: "TIO BARNABÉ"}},
		},
		{
			name: "one-sided conflict from the table payload",
			tables: []domain.Table{
				{ID: 4, Name: "D", Guests: []domain.Guest{guest("Ana"), guest("Beto", "Ana")}},
			},
			want: []Conflict{{TableID: 4, TableName: "D", Guest: "Ana", With: "Beto"}},
		},
		{
			name: "conflict with someone not invited",
			tables: []domain.Table{
				{ID: 5, Name: "E", Guests: []domain.Guest{{Name: "Juliana"}, {Name: "Ana"}}},
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FindConflicts(tc.tables, roster)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("FindConflicts = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestFindConflictsDoesNotModifyTables(t *testing.T) {
	tables := []domain.Table{
		{ID: 1, Name: "Família", Guests: []domain.Guest{guest("Tia Cotinha", "Tio Barnabé"), guest("Tio Barnabé", "Tia Cotinha")}},
	}
	before := len(tables[0].Guests)
	if got := FindConflicts(tables, nil); len(got) != 1 {
		t.Fatalf("expected one conflict, got %+v", got)
	}
	if len(tables[0].Guests) != before {
		t.Fatalf("tables were modified")
	}
}

func TestUnseated(t *testing.T) {
	roster := []domain.Guest{guest("Ana"), guest("Beto"), guest("Carlos")}
	tables := []domain.Table{{ID: 1, Guests: []domain.Guest{{Name: "ana"}, {Name: "Carlos"}}}}
	if got := Unseated(tables, roster); !reflect.DeepEqual(got, []string{"Beto"}) {
		t.Fatalf("Unseated = %v", got)
	}
}
