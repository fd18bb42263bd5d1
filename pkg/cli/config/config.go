package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	domainConfig "github.com/secmon-lab/grcore/pkg/domain/model/config"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// RuleFile is the TOML representation of the rule configuration. Omitted
// sections keep their built-in defaults.
type RuleFile struct {
	Ratings     *Ratings            `toml:"ratings"`
	Transitions *Transitions        `toml:"transitions"`
	Compliance  *Compliance         `toml:"compliance"`
	Escalation  *Escalation         `toml:"escalation"`
	Assignment  *Assignment         `toml:"assignment"`
	Roles       map[string][]string `toml:"roles"`
	Remaps      []Remap             `toml:"remap"`
}

type Ratings struct {
	LowMax    int `toml:"low_max"`
	MediumMax int `toml:"medium_max"`
	HighMax   int `toml:"high_max"`
}

// Transitions replaces the lifecycle of each kind that is set
type Transitions struct {
	Risk    map[string][]string `toml:"risk"`
	Control map[string][]string `toml:"control"`
	Issue   map[string][]string `toml:"issue"`
}

type Compliance struct {
	Window       int     `toml:"window"`
	CompliantMin float64 `toml:"compliant_min"`
	PartialMin   float64 `toml:"partial_min"`
}

type Escalation struct {
	AfterDays int `toml:"after_days"`
}

type Assignment struct {
	CategoryGroups map[string]string `toml:"category_groups"`
	Groups         []Group           `toml:"groups"`
}

type Group struct {
	ID      string `toml:"id"`
	Name    string `toml:"name"`
	Manager string `toml:"manager"`
}

type Remap struct {
	Name          string            `toml:"name"`
	Target        string            `toml:"target"`
	Mapping       map[string]string `toml:"mapping"`
	BatchLimit    int               `toml:"batch_limit"`
	PreserveAudit bool              `toml:"preserve_audit"`
}

// ToDomainRules overlays the file onto the default rules
func (f *RuleFile) ToDomainRules() *domainConfig.Rules {
	rules := domainConfig.DefaultRules()

	if f.Ratings != nil {
		rules.Ratings = domainConfig.RatingThresholds{
			LowMax:    f.Ratings.LowMax,
			MediumMax: f.Ratings.MediumMax,
			HighMax:   f.Ratings.HighMax,
		}
	}

	if f.Transitions != nil {
		rules.Transitions = domainConfig.Transitions{
			Risk:    f.Transitions.Risk,
			Control: f.Transitions.Control,
			Issue:   f.Transitions.Issue,
		}
	}

	if f.Compliance != nil {
		rules.Compliance = domainConfig.Compliance{
			Window:       f.Compliance.Window,
			CompliantMin: f.Compliance.CompliantMin,
			PartialMin:   f.Compliance.PartialMin,
		}
	}

	if f.Escalation != nil {
		rules.Escalation = domainConfig.Escalation{AfterDays: f.Escalation.AfterDays}
	}

	if f.Assignment != nil {
		if f.Assignment.CategoryGroups != nil {
			rules.Assignment.CategoryGroups = make(map[types.CategoryID]types.GroupID, len(f.Assignment.CategoryGroups))
			for category, group := range f.Assignment.CategoryGroups {
				rules.Assignment.CategoryGroups[types.CategoryID(category)] = types.GroupID(group)
			}
		}
		if f.Assignment.Groups != nil {
			rules.Assignment.Groups = make([]domainConfig.Group, len(f.Assignment.Groups))
			for i, g := range f.Assignment.Groups {
				rules.Assignment.Groups[i] = domainConfig.Group{
					ID:      types.GroupID(g.ID),
					Name:    g.Name,
					Manager: g.Manager,
				}
			}
		}
	}

	if f.Roles != nil {
		rules.Roles = f.Roles
	}

	for _, r := range f.Remaps {
		rules.Remaps = append(rules.Remaps, domainConfig.RemapTable{
			Name:          r.Name,
			Target:        types.RemapTarget(r.Target),
			Mapping:       r.Mapping,
			BatchLimit:    r.BatchLimit,
			PreserveAudit: r.PreserveAudit,
		})
	}

	return rules
}

// LoadRules reads, decodes and validates a rule file. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func LoadRules(path string) (*domainConfig.Rules, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "rule file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read rule file", goerr.V(ConfigPathKey, path))
	}

	var file RuleFile
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML rule file",
			goerr.V(ConfigPathKey, path),
			goerr.V("cause", err.Error()))
	}

	rules := file.ToDomainRules()
	if err := ValidateRules(rules); err != nil {
		return nil, goerr.Wrap(err, "rule validation failed", goerr.V(ConfigPathKey, path))
	}
	return rules, nil
}

// ValidateRules checks every section and builds the derived components once
// so that a bad transition table or threshold fails at startup.
func ValidateRules(rules *domainConfig.Rules) error {
	checks := []struct {
		section string
		check   func() error
	}{
		{"rules", rules.Validate},
		{"ratings", func() error { _, err := model.NewRiskMatrix(rules.Ratings); return err }},
		{"transitions", func() error { _, err := model.NewStateMachine(rules.Transitions); return err }},
		{"compliance", func() error { _, err := model.NewComplianceEvaluator(rules.Compliance); return err }},
	}

	for _, c := range checks {
		if err := c.check(); err != nil {
			return goerr.Wrap(errors.Join(ErrInvalidConfig, err), "invalid rule configuration", goerr.V(SectionKey, c.section))
		}
	}
	return nil
}

// Rules holds the CLI flag pointing at the rule file
type Rules struct {
	path string
}

func (x *Rules) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML rule file. Built-in defaults are used when omitted",
			Sources:     cli.EnvVars("GRCORE_CONFIG"),
			Destination: &x.path,
		},
	}
}

// Path returns the configured rule file path
func (x *Rules) Path() string {
	return x.path
}

// Configure loads the rule file, or the defaults when no path is set
func (x *Rules) Configure() (*domainConfig.Rules, error) {
	if x.path == "" {
		logging.Default().Info("No rule file given, using built-in rules")
		return domainConfig.DefaultRules(), nil
	}

	rules, err := LoadRules(x.path)
	if err != nil {
		return nil, err
	}

	logging.Default().Info("Rule file loaded",
		"path", x.path,
		"remap_tables", len(rules.Remaps),
		"groups", len(rules.Assignment.Groups))
	return rules, nil
}
