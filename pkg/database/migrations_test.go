package database

import (
	"os"
	"path/filepath"
	"testing"
)

func skriv(t *testing.T, dir, navn, innhold string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, navn), []byte(innhold), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLesMigrasjoner_SortertPaVersjon(t *testing.T) {
	dir := t.TempDir()
	skriv(t, dir, "010_oppgaver.sql", "CREATE TABLE b (id INTEGER);")
	skriv(t, dir, "001_init.sql", "CREATE TABLE a (id INTEGER);")
	skriv(t, dir, "README.md", "ikke en migrasjon")

	migrasjoner, err := lesMigrasjoner(dir)
	if err != nil {
		t.Fatalf("lesMigrasjoner: %v", err)
	}
	if len(migrasjoner) != 2 {
		t.Fatalf("antall migrasjoner = %d, vil ha 2", len(migrasjoner))
	}
	if migrasjoner[0].versjon != 1 || migrasjoner[1].versjon != 10 {
		t.Errorf("rekkefølge = %d, %d, vil ha 1, 10", migrasjoner[0].versjon, migrasjoner[1].versjon)
	}
	if migrasjoner[0].navn != "init" {
		t.Errorf("navn = %q, vil ha %q", migrasjoner[0].navn, "init")
	}
}

func TestLesMigrasjoner_DuplikatVersjonFeiler(t *testing.T) {
	dir := t.TempDir()
	skriv(t, dir, "001_init.sql", "CREATE TABLE a (id INTEGER);")
	skriv(t, dir, "001_oppgaver.sql", "CREATE TABLE b (id INTEGER);")

	if _, err := lesMigrasjoner(dir); err == nil {
		t.Fatal("forventet feil for duplisert versjonsnummer")
	}
}

func TestTolkFilnavn(t *testing.T) {
	tests := []struct {
		filnavn string
		versjon int
		navn    string
		feil    bool
	}{
		{filnavn: "001_init.sql", versjon: 1, navn: "init"},
		{filnavn: "042_legg_til_indeks.sql", versjon: 42, navn: "legg_til_indeks"},
		{filnavn: "uten_versjon.sql", feil: true},
	}
	for _, tt := range tests {
		versjon, navn, err := tolkFilnavn(tt.filnavn)
		if tt.feil {
			if err == nil {
				t.Errorf("tolkFilnavn(%q): forventet feil", tt.filnavn)
			}
			continue
		}
		if err != nil {
			t.Errorf("tolkFilnavn(%q): %v", tt.filnavn, err)
			continue
		}
		if versjon != tt.versjon || navn != tt.navn {
			t.Errorf("tolkFilnavn(%q) = %d, %q, vil ha %d, %q", tt.filnavn, versjon, navn, tt.versjon, tt.navn)
		}
	}
}
