package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; provider and
// database changes require a restart and are deliberately absent.
type ConfigDiff struct {
	LanguagesChanged bool
	LanguageChanges  []LanguageDiff // per-language diffs

	LogLevelChanged bool
	NewLogLevel     LogLevel
}

// LanguageDiff describes what changed for a single language between two
// configs.
type LanguageDiff struct {
	Code        string
	NameChanged bool
	Added       bool
	Removed     bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	// Detect modified and removed languages.
	for code, oldName := range old.Languages {
		newName, exists := new.Languages[code]
		if !exists {
			d.LanguageChanges = append(d.LanguageChanges, LanguageDiff{
				Code:    code,
				Removed: true,
			})
			d.LanguagesChanged = true
			continue
		}
		if oldName != newName {
			d.LanguageChanges = append(d.LanguageChanges, LanguageDiff{
				Code:        code,
				NameChanged: true,
			})
			d.LanguagesChanged = true
		}
	}

	// Detect added languages.
	for code := range new.Languages {
		if _, exists := old.Languages[code]; !exists {
			d.LanguageChanges = append(d.LanguageChanges, LanguageDiff{
				Code:  code,
				Added: true,
			})
			d.LanguagesChanged = true
		}
	}

	return d
}
