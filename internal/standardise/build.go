// SPDX-License-Identifier: MIT

package standardise

import (
	"fmt"
	"time"

	"github.com/ManuGH/standardise/internal/config"
)

// Build assembles the pipeline for cfg. Stages always run in the fixed order
// of config.AllStages; Enabled only selects which of them run. An empty
// Enabled list selects none.
func Build(cfg config.StagesConfig, now func() time.Time) (*Pipeline, error) {
	enabled := make(map[string]bool, len(cfg.Enabled))
	for _, name := range cfg.Enabled {
		if !isKnownStage(name) {
			return nil, fmt.Errorf("unknown stage %q", name)
		}
		enabled[name] = true
	}

	p := &Pipeline{}
	for _, name := range config.AllStages {
		if !enabled[name] {
			continue
		}
		switch name {
		case config.StageRename:
			p.Stages = append(p.Stages, RenameColumns())
		case config.StageNulls:
			p.Stages = append(p.Stages, NullifyTokens(cfg.NullValues))
		case config.StageTimestamps:
			p.Stages = append(p.Stages, NormaliseTimestamps(cfg.TimestampColumns, cfg.TimestampLayouts))
		case config.StageStrings:
			p.Stages = append(p.Stages, StandardiseStrings(cfg.StringConcurrency))
		case config.StageDedupe:
			p.Stages = append(p.Stages, Deduplicate())
		case config.StageMetadata:
			p.Stages = append(p.Stages, TagMetadata(now, cfg.DataSource))
		}
	}
	return p, nil
}

func isKnownStage(name string) bool {
	for _, s := range config.AllStages {
		if s == name {
			return true
		}
	}
	return false
}
