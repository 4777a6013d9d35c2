package profile

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joyrig/joyrig/internal/action"
	"github.com/joyrig/joyrig/internal/input"
	"github.com/joyrig/joyrig/internal/input/virtual"
)

// Load reads, parses, and finalizes a profile file.
func Load(path string) (*Profile, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML profile document and finalizes it. Malformed
// documents fail as a whole; semantic problems confined to single
// bindings drop those bindings and come back as issues.
func Parse(data []byte) (*Profile, []string, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	p, err := doc.build()
	if err != nil {
		return nil, nil, err
	}
	issues, err := p.Finalize()
	if err != nil {
		return nil, nil, err
	}
	return p, issues, nil
}

type document struct {
	Name     string            `yaml:"name"`
	Startup  string            `yaml:"startup_mode"`
	Devices  map[string]string `yaml:"devices"`
	Modes    []modeDoc         `yaml:"modes"`
	Actions  []actionDoc       `yaml:"actions"`
	Bindings []bindingDoc      `yaml:"bindings"`
}

type modeDoc struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent"`
}

// actionDoc captures the id and type eagerly and keeps the raw node
// for the per-variant decode.
type actionDoc struct {
	ID   uint64
	Type string
	node yaml.Node
}

func (a *actionDoc) UnmarshalYAML(value *yaml.Node) error {
	var head struct {
		ID   uint64 `yaml:"id"`
		Type string `yaml:"type"`
	}
	if err := value.Decode(&head); err != nil {
		return err
	}
	a.ID = head.ID
	a.Type = head.Type
	a.node = *value
	return nil
}

type bindingDoc struct {
	Mode    string      `yaml:"mode"`
	Device  string      `yaml:"device"`
	Type    string      `yaml:"type"`
	Index   int         `yaml:"index"`
	Actions []uint64    `yaml:"actions"`
	Virtual *virtualDoc `yaml:"virtual"`
}

type virtualDoc struct {
	Kind       string   `yaml:"kind"`
	Lower      float64  `yaml:"lower"`
	Upper      float64  `yaml:"upper"`
	Direction  string   `yaml:"direction"`
	Directions []string `yaml:"directions"`
}

type inputDoc struct {
	Device string `yaml:"device"`
	Type   string `yaml:"type"`
	Index  int    `yaml:"index"`
}

// duration accepts Go duration strings ("250ms") or bare numbers in
// seconds.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		v, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q", s)
		}
		*d = duration(v)
		return nil
	}
	var f float64
	if err := value.Decode(&f); err != nil {
		return fmt.Errorf("invalid duration value")
	}
	*d = duration(f * float64(time.Second))
	return nil
}

type builder struct {
	devices map[string]input.DeviceGUID
}

func (doc *document) build() (*Profile, error) {
	p := New(doc.Name)
	p.Startup = doc.Startup

	b := &builder{devices: make(map[string]input.DeviceGUID)}
	for alias, raw := range doc.Devices {
		guid, err := input.ParseDeviceGUID(raw)
		if err != nil {
			return nil, fmt.Errorf("device %q: invalid guid %q", alias, raw)
		}
		b.devices[alias] = guid
	}

	for _, m := range doc.Modes {
		if m.Name == "" {
			return nil, fmt.Errorf("mode with empty name")
		}
		p.AddMode(m.Name, m.Parent)
	}

	for i := range doc.Actions {
		a := &doc.Actions[i]
		node, err := b.buildAction(a)
		if err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", a.ID, a.Type, err)
		}
		if err := p.Library.Put(action.ID(a.ID), node); err != nil {
			return nil, err
		}
	}

	for i, bd := range doc.Bindings {
		guid, err := b.device(bd.Device)
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
		typ, err := input.ParseType(bd.Type)
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
		var spec *virtual.Spec
		if bd.Virtual != nil {
			spec, err = buildVirtual(bd.Virtual)
			if err != nil {
				return nil, fmt.Errorf("binding %d: %w", i, err)
			}
		}
		id := input.Identifier{Device: guid, Type: typ, Index: bd.Index}
		p.AddBinding(bd.Mode, id, spec, toIDs(bd.Actions)...)
	}

	return p, nil
}

func (b *builder) device(ref string) (input.DeviceGUID, error) {
	if ref == "" {
		return input.DeviceGUID{}, fmt.Errorf("empty device reference")
	}
	if guid, ok := b.devices[ref]; ok {
		return guid, nil
	}
	guid, err := input.ParseDeviceGUID(ref)
	if err != nil {
		return input.DeviceGUID{}, fmt.Errorf("unknown device %q", ref)
	}
	return guid, nil
}

func (b *builder) input(d inputDoc) (input.Identifier, error) {
	guid, err := b.device(d.Device)
	if err != nil {
		return input.Identifier{}, err
	}
	typ, err := input.ParseType(d.Type)
	if err != nil {
		return input.Identifier{}, err
	}
	return input.Identifier{Device: guid, Type: typ, Index: d.Index}, nil
}

func buildVirtual(d *virtualDoc) (*virtual.Spec, error) {
	spec := &virtual.Spec{Lower: d.Lower, Upper: d.Upper}
	switch d.Kind {
	case "axis-range", "axis":
		spec.Kind = virtual.KindAxis
		dir, err := virtual.ParseAxisDirection(d.Direction)
		if err != nil {
			return nil, err
		}
		spec.Direction = dir
	case "hat-directions", "hat":
		spec.Kind = virtual.KindHat
		set, err := parseDirections(d.Directions)
		if err != nil {
			return nil, err
		}
		spec.Directions = set
	default:
		return nil, fmt.Errorf("unknown virtual button kind %q", d.Kind)
	}
	return spec, nil
}

func parseDirections(names []string) (input.DirectionSet, error) {
	var set input.DirectionSet
	for _, name := range names {
		dir, err := input.ParseDirection(name)
		if err != nil {
			return 0, err
		}
		set |= input.NewDirectionSet(dir)
	}
	return set, nil
}

func toIDs(raw []uint64) []action.ID {
	if len(raw) == 0 {
		return nil
	}
	out := make([]action.ID, len(raw))
	for i, v := range raw {
		out[i] = action.ID(v)
	}
	return out
}

func toGroups(raw [][]uint64) [][]action.ID {
	out := make([][]action.ID, len(raw))
	for i, g := range raw {
		out[i] = toIDs(g)
	}
	return out
}

// buildAction decodes one action document into its variant node.
func (b *builder) buildAction(a *actionDoc) (action.Node, error) {
	kind, err := action.ParseKind(a.Type)
	if err != nil {
		return nil, err
	}

	switch kind {
	case action.KindMapToVJoy:
		var d struct {
			Device int    `yaml:"device"`
			Target string `yaml:"target"`
			Index  int    `yaml:"index"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		target, err := input.ParseType(d.Target)
		if err != nil {
			return nil, err
		}
		return &action.MapToVJoy{Device: d.Device, Target: target, Index: d.Index}, nil

	case action.KindMapToKeyboard:
		var d struct {
			Key string `yaml:"key"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		return &action.MapToKeyboard{Key: d.Key}, nil

	case action.KindMapToMouse:
		var d struct {
			Target   string  `yaml:"target"`
			Button   int     `yaml:"button"`
			MinSpeed float64 `yaml:"min_speed"`
			MaxSpeed float64 `yaml:"max_speed"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		target, err := action.ParseMouseTarget(d.Target)
		if err != nil {
			return nil, err
		}
		return &action.MapToMouse{Target: target, Button: d.Button, MinSpeed: d.MinSpeed, MaxSpeed: d.MaxSpeed}, nil

	case action.KindMapToLogicalDevice:
		var d struct {
			Device string `yaml:"device"`
			Target string `yaml:"target"`
			Index  int    `yaml:"index"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		guid, err := b.device(d.Device)
		if err != nil {
			return nil, err
		}
		target, err := input.ParseType(d.Target)
		if err != nil {
			return nil, err
		}
		return &action.MapToLogicalDevice{Device: guid, Target: target, Index: d.Index}, nil

	case action.KindMacro:
		return b.buildMacro(a)

	case action.KindPause:
		var d struct {
			Duration duration `yaml:"duration"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		return &action.Pause{Duration: time.Duration(d.Duration)}, nil

	case action.KindChain:
		var d struct {
			Groups  [][]uint64 `yaml:"groups"`
			Timeout duration   `yaml:"timeout"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		return &action.Chain{Groups: toGroups(d.Groups), Timeout: time.Duration(d.Timeout)}, nil

	case action.KindCondition:
		var d struct {
			Comparator struct {
				Input      inputDoc `yaml:"input"`
				Kind       string   `yaml:"kind"`
				Pressed    bool     `yaml:"pressed"`
				Lower      float64  `yaml:"lower"`
				Upper      float64  `yaml:"upper"`
				Directions []string `yaml:"directions"`
			} `yaml:"comparator"`
			OnTrue  []uint64 `yaml:"on_true"`
			OnFalse []uint64 `yaml:"on_false"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		ckind, err := action.ParseComparatorKind(d.Comparator.Kind)
		if err != nil {
			return nil, err
		}
		// An omitted comparator input means the triggering event.
		var id input.Identifier
		if d.Comparator.Input != (inputDoc{}) {
			id, err = b.input(d.Comparator.Input)
			if err != nil {
				return nil, err
			}
		}
		set, err := parseDirections(d.Comparator.Directions)
		if err != nil {
			return nil, err
		}
		return &action.Condition{
			Comparator: action.Comparator{
				Input:      id,
				Kind:       ckind,
				Pressed:    d.Comparator.Pressed,
				Lower:      d.Comparator.Lower,
				Upper:      d.Comparator.Upper,
				Directions: set,
			},
			True:  toIDs(d.OnTrue),
			False: toIDs(d.OnFalse),
		}, nil

	case action.KindTempo:
		var d struct {
			Threshold  duration `yaml:"threshold"`
			ActivateOn string   `yaml:"activate_on"`
			Short      []uint64 `yaml:"short"`
			Long       []uint64 `yaml:"long"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		activate, err := action.ParseTempoActivation(d.ActivateOn)
		if err != nil {
			return nil, err
		}
		return &action.Tempo{
			Threshold:  time.Duration(d.Threshold),
			ActivateOn: activate,
			Short:      toIDs(d.Short),
			Long:       toIDs(d.Long),
		}, nil

	case action.KindDoubleTap:
		var d struct {
			Threshold duration `yaml:"threshold"`
			Mode      string   `yaml:"mode"`
			Single    []uint64 `yaml:"single"`
			Double    []uint64 `yaml:"double"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		tapMode, err := action.ParseDoubleTapMode(d.Mode)
		if err != nil {
			return nil, err
		}
		return &action.DoubleTap{
			Threshold: time.Duration(d.Threshold),
			Mode:      tapMode,
			Single:    toIDs(d.Single),
			Double:    toIDs(d.Double),
		}, nil

	case action.KindSmartToggle:
		var d struct {
			Delay   duration `yaml:"delay"`
			Actions []uint64 `yaml:"actions"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		return &action.SmartToggle{Delay: time.Duration(d.Delay), Children: toIDs(d.Actions)}, nil

	case action.KindHatButtons:
		var d struct {
			ButtonCount int                 `yaml:"button_count"`
			Children    map[string][]uint64 `yaml:"children"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		children := make(map[input.Direction][]action.ID, len(d.Children))
		for name, ids := range d.Children {
			dir, err := input.ParseDirection(name)
			if err != nil {
				return nil, err
			}
			children[dir] = toIDs(ids)
		}
		return &action.HatButtons{ButtonCount: d.ButtonCount, Children: children}, nil

	case action.KindPauseResume:
		var d struct {
			Operation string `yaml:"operation"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		op, err := action.ParsePauseOperation(d.Operation)
		if err != nil {
			return nil, err
		}
		return &action.PauseResume{Operation: op}, nil

	case action.KindChangeMode:
		var d struct {
			Change  string   `yaml:"change"`
			Targets []string `yaml:"targets"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		change, err := action.ParseModeChange(d.Change)
		if err != nil {
			return nil, err
		}
		return &action.ChangeMode{Change: change, Targets: d.Targets}, nil

	case action.KindMergeAxis:
		var d struct {
			Other     inputDoc `yaml:"other"`
			Operation string   `yaml:"operation"`
			Actions   []uint64 `yaml:"actions"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		op, err := action.ParseMergeOperation(d.Operation)
		if err != nil {
			return nil, err
		}
		other, err := b.input(d.Other)
		if err != nil {
			return nil, err
		}
		return &action.MergeAxis{Other: other, Operation: op, Children: toIDs(d.Actions)}, nil

	case action.KindResponseCurve:
		var d struct {
			Curve    string      `yaml:"curve"`
			Points   [][]float64 `yaml:"points"`
			Deadzone []float64   `yaml:"deadzone"`
			Actions  []uint64    `yaml:"actions"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		ckind, err := action.ParseCurveKind(d.Curve)
		if err != nil {
			return nil, err
		}
		points := make([]action.CurvePoint, len(d.Points))
		for i, pair := range d.Points {
			if len(pair) != 2 {
				return nil, fmt.Errorf("curve point %d is not an [x, y] pair", i)
			}
			points[i] = action.CurvePoint{X: pair[0], Y: pair[1]}
		}
		dz := action.DefaultDeadzone()
		switch len(d.Deadzone) {
		case 0:
		case 4:
			dz = action.Deadzone{Low: d.Deadzone[0], CenterLow: d.Deadzone[1], CenterHigh: d.Deadzone[2], High: d.Deadzone[3]}
		default:
			return nil, fmt.Errorf("deadzone needs 4 values, got %d", len(d.Deadzone))
		}
		return &action.ResponseCurve{Curve: ckind, Points: points, Deadzone: dz, Children: toIDs(d.Actions)}, nil

	case action.KindDualAxisDeadzone:
		var d struct {
			Other       inputDoc `yaml:"other"`
			InnerRadius float64  `yaml:"inner_radius"`
			OuterRadius float64  `yaml:"outer_radius"`
			Actions     []uint64 `yaml:"actions"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		other, err := b.input(d.Other)
		if err != nil {
			return nil, err
		}
		return &action.DualAxisDeadzone{Other: other, InnerRadius: d.InnerRadius, OuterRadius: d.OuterRadius, Children: toIDs(d.Actions)}, nil

	case action.KindSplitAxis:
		var d struct {
			Split float64  `yaml:"split"`
			Low   []uint64 `yaml:"low"`
			High  []uint64 `yaml:"high"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		return &action.SplitAxis{Split: d.Split, Low: toIDs(d.Low), High: toIDs(d.High)}, nil

	case action.KindDescription:
		var d struct {
			Text string `yaml:"text"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		return &action.Description{Text: d.Text}, nil

	case action.KindReference:
		var d struct {
			Target uint64 `yaml:"target"`
		}
		if err := a.node.Decode(&d); err != nil {
			return nil, err
		}
		return &action.Reference{Target: action.ID(d.Target)}, nil

	default:
		return nil, fmt.Errorf("unhandled action kind %v", kind)
	}
}

func (b *builder) buildMacro(a *actionDoc) (action.Node, error) {
	var d struct {
		Steps       []macroStepDoc `yaml:"steps"`
		Repeat      string         `yaml:"repeat"`
		RepeatDelay duration       `yaml:"repeat_delay"`
		RepeatCount int            `yaml:"repeat_count"`
		Exclusive   bool           `yaml:"exclusive"`
	}
	if err := a.node.Decode(&d); err != nil {
		return nil, err
	}
	repeat, err := action.ParseMacroRepeat(d.Repeat)
	if err != nil {
		return nil, err
	}
	steps := make([]action.MacroStep, len(d.Steps))
	for i, sd := range d.Steps {
		step, err := b.buildMacroStep(sd)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		steps[i] = step
	}
	return &action.Macro{
		Steps:       steps,
		Repeat:      repeat,
		RepeatDelay: time.Duration(d.RepeatDelay),
		RepeatCount: d.RepeatCount,
		Exclusive:   d.Exclusive,
	}, nil
}

type macroStepDoc struct {
	Type    string   `yaml:"type"`
	Wait    duration `yaml:"wait"`
	Key     string   `yaml:"key"`
	Press   bool     `yaml:"press"`
	Button  int      `yaml:"button"`
	DX      int      `yaml:"dx"`
	DY      int      `yaml:"dy"`
	Device  string   `yaml:"device"`
	VJoy    int      `yaml:"vjoy"`
	Target  string   `yaml:"target"`
	Index   int      `yaml:"index"`
	Axis    *float64 `yaml:"axis"`
	Pressed *bool    `yaml:"pressed"`
	Hat     string   `yaml:"hat"`
}

func (b *builder) buildMacroStep(d macroStepDoc) (action.MacroStep, error) {
	kind, err := action.ParseMacroStepKind(d.Type)
	if err != nil {
		return action.MacroStep{}, err
	}
	step := action.MacroStep{
		Kind:   kind,
		Wait:   time.Duration(d.Wait),
		Key:    d.Key,
		Press:  d.Press,
		Button: d.Button,
		DX:     d.DX,
		DY:     d.DY,
		VJoy:   d.VJoy,
		Index:  d.Index,
	}

	if kind == action.StepVJoy || kind == action.StepLogical {
		target, err := input.ParseType(d.Target)
		if err != nil {
			return action.MacroStep{}, err
		}
		step.Target = target
		value, err := buildValue(target, d)
		if err != nil {
			return action.MacroStep{}, err
		}
		step.Value = value
	}
	if kind == action.StepLogical {
		guid, err := b.device(d.Device)
		if err != nil {
			return action.MacroStep{}, err
		}
		step.Device = guid
	}
	return step, nil
}

func buildValue(target input.Type, d macroStepDoc) (input.Value, error) {
	switch target {
	case input.TypeAxis:
		if d.Axis == nil {
			return input.Value{}, fmt.Errorf("axis step without an axis value")
		}
		return input.AxisValue(*d.Axis), nil
	case input.TypeButton, input.TypeKey:
		if d.Pressed == nil {
			return input.Value{}, fmt.Errorf("button step without a pressed value")
		}
		return input.ButtonValue(*d.Pressed), nil
	case input.TypeHat:
		dir, err := input.ParseDirection(d.Hat)
		if err != nil {
			return input.Value{}, err
		}
		return input.HatValue(dir), nil
	default:
		return input.Value{}, fmt.Errorf("unsupported step target %v", target)
	}
}
