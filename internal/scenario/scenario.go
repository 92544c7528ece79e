// internal/scenario/scenario.go
// Package scenario loads YAML step lists and plays them through a session.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/pagesync/internal/driver"
)

// Action names a step kind.
type Action string

const (
	ActionOpen           Action = "open"
	ActionClick          Action = "click"
	ActionType           Action = "type"
	ActionWaitVisible    Action = "wait_visible"
	ActionWaitNotVisible Action = "wait_not_visible"
	ActionWaitURL        Action = "wait_url"
	ActionExpectText     Action = "expect_text"
	ActionExpectVisible  Action = "expect_visible"
	ActionExpectCount    Action = "expect_count"
	ActionExpectTitle    Action = "expect_title"
	ActionAcceptAlert    Action = "accept_alert"
	ActionRecoverAlert   Action = "recover_alert"
	ActionSwitchNewest   Action = "switch_newest"
	ActionClickNewWindow Action = "click_new_window"
	ActionScroll         Action = "scroll"
	ActionHover          Action = "hover"
	ActionBack           Action = "back"
	ActionForward        Action = "forward"
	ActionRefresh        Action = "refresh"
)

// field requirements per action.
type needs struct {
	locator bool
	text    bool
	url     bool
	count   bool
}

var actionNeeds = map[Action]needs{
	ActionOpen:           {url: true},
	ActionClick:          {locator: true},
	ActionType:           {locator: true, text: true},
	ActionWaitVisible:    {locator: true},
	ActionWaitNotVisible: {locator: true},
	ActionWaitURL:        {text: true},
	ActionExpectText:     {locator: true, text: true},
	ActionExpectVisible:  {locator: true},
	ActionExpectCount:    {locator: true, count: true},
	ActionExpectTitle:    {text: true},
	ActionAcceptAlert:    {},
	ActionRecoverAlert:   {},
	ActionSwitchNewest:   {},
	ActionClickNewWindow: {locator: true},
	ActionScroll:         {locator: true},
	ActionHover:          {locator: true},
	ActionBack:           {},
	ActionForward:        {},
	ActionRefresh:        {},
}

// ErrInvalid marks a scenario that fails validation.
var ErrInvalid = errors.New("invalid scenario")

// Step is one entry of a scenario. Which fields apply depends on Action.
type Step struct {
	Action  Action        `yaml:"action"`
	Locator string        `yaml:"locator,omitempty"`
	Text    string        `yaml:"text,omitempty"`
	URL     string        `yaml:"url,omitempty"`
	Count   *int          `yaml:"count,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`

	loc driver.Locator
}

// Scenario is a named list of steps. Timeout, when set, overrides the session's
// default for every step that does not carry its own.
type Scenario struct {
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Steps   []Step        `yaml:"steps"`
}

// Load reads and validates a scenario file. A leading ~ in path is expanded.
func Load(path string) (*Scenario, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand scenario path %q: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", expanded, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario. Unknown keys are rejected so a typo in a
// step does not silently change what it does.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks every step and parses its locator.
func (sc *Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalid)
	}
	if sc.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout %s", ErrInvalid, sc.Timeout)
	}
	for i := range sc.Steps {
		if err := sc.Steps[i].validate(); err != nil {
			return fmt.Errorf("%w: step %d (%s): %w", ErrInvalid, i+1, sc.Steps[i].Action, err)
		}
	}
	return nil
}

func (st *Step) validate() error {
	n, ok := actionNeeds[st.Action]
	if !ok {
		return fmt.Errorf("unknown action %q", st.Action)
	}
	if st.Timeout < 0 {
		return fmt.Errorf("negative timeout %s", st.Timeout)
	}
	if n.locator {
		loc, err := driver.ParseLocator(st.Locator)
		if err != nil {
			return fmt.Errorf("locator: %w", err)
		}
		st.loc = loc
	}
	if n.text && st.Text == "" {
		return errors.New("text is required")
	}
	if n.url && st.URL == "" {
		return errors.New("url is required")
	}
	if n.count {
		if st.Count == nil {
			return errors.New("count is required")
		}
		if *st.Count < 0 {
			return fmt.Errorf("negative count %d", *st.Count)
		}
	}
	return nil
}

// ParsedLocator returns the locator of a validated step.
func (st Step) ParsedLocator() driver.Locator { return st.loc }
