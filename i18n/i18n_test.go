package i18n

import "testing"

func TestDetect(t *testing.T) {
	envs := []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"}

	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "nothing set", env: map[string]string{}, want: "en"},
		{name: "lang with encoding", env: map[string]string{"LANG": "zh_CN.UTF-8"}, want: "zh_CN"},
		{name: "language list wins", env: map[string]string{"LANGUAGE": "zh_CN:en", "LANG": "de_DE"}, want: "zh_CN"},
		{name: "lc_all over lang", env: map[string]string{"LC_ALL": "fr_FR", "LANG": "de_DE"}, want: "fr_FR"},
		{name: "C locale skipped", env: map[string]string{"LC_ALL": "C", "LANG": "zh_CN"}, want: "zh_CN"},
		{name: "posix skipped", env: map[string]string{"LANG": "POSIX"}, want: "en"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for _, env := range envs {
				t.Setenv(env, tc.env[env])
			}
			if got := detect(); got != tc.want {
				t.Fatalf("detect() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFallbackWithoutInit(t *testing.T) {
	old := locale
	locale = nil
	defer func() { locale = old }()

	if got := T("Loading dictionary..."); got != "Loading dictionary..." {
		t.Fatalf("T() = %q", got)
	}
	if got := N("one file", "many files", 1); got != "one file" {
		t.Fatalf("N(1) = %q", got)
	}
	if got := N("one file", "many files", 3); got != "many files" {
		t.Fatalf("N(3) = %q", got)
	}
}

func TestInitLoadsChineseCatalog(t *testing.T) {
	old := locale
	defer func() { locale = old }()

	Init("zh_CN")
	if got := T("Loading dictionary..."); got == "Loading dictionary..." {
		t.Fatalf("zh_CN catalog missing translation, got %q", got)
	}
}
