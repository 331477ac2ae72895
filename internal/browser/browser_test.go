package browser

import "testing"

// --- xpathString Tests ---

func TestXpathString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mostrar reasignables", "'Mostrar reasignables'"},
		{`con "comillas"`, `'con "comillas"'`},
		{"O'Higgins 1200", `"O'Higgins 1200"`},
		{`O'Higgins "norte"`, `concat('O',"'",'Higgins "norte"')`},
	}
	for _, tt := range tests {
		if got := xpathString(tt.in); got != tt.want {
			t.Errorf("xpathString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

// --- Config Tests ---

func TestDefaultConfig_DisconnectedMarkers(t *testing.T) {
	cfg := DefaultConfig()
	if len(cfg.DisconnectedMarkers) == 0 {
		t.Fatal("defaults must carry the not-connected markers")
	}
	want := map[string]bool{"/not_connected": true, "session_expired": true, "desconectado": true}
	for _, m := range cfg.DisconnectedMarkers {
		if !want[m] {
			t.Errorf("unexpected marker %q", m)
		}
		delete(want, m)
	}
	if len(want) != 0 {
		t.Errorf("missing markers: %v", want)
	}
}
