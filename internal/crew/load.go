package crew

import (
	"fmt"

	"github.com/crewgate/crewgate/internal/config"
)

// Provider kinds resolvable by Load.
const (
	KindExec = "exec"
	KindHTTP = "http"
)

// Load resolves the workload provider from configuration. It is called once
// at startup: a failure here is a collaborator load failure, not a runtime
// condition.
func Load(cfg config.CrewConfig) (Provider, error) {
	switch cfg.Kind {
	case KindExec:
		p, err := NewExecProvider(cfg.Command, cfg.Args, cfg.Dir)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindHTTP:
		p, err := NewHTTPProvider(cfg.URL, cfg.Token, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown crew provider kind %q", cfg.Kind)
	}
}
