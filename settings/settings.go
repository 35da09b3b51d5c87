package settings

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/constraint"
	"github.com/hxnet/hxnet/contact"
	"github.com/hxnet/hxnet/grasp"
	"github.com/hxnet/hxnet/physics"
	"github.com/pelletier/go-toml"
	"github.com/samber/lo"
)

// Settings contains everything a user may tune about hand interactions.
type Settings struct {
	Grasp        Grasp
	Constraint   Constraint
	Damping      Damping
	Retractuator Retractuator
	Whitelist    Whitelist
	// Objects holds per-object overrides keyed by object name.
	Objects map[string]ObjectOverride
}

// Grasp are the grasp detection settings.
type Grasp struct {
	Threshold          float64
	ReleaseHysteresis  float64
	TimeConstant       float64
	ParticipationFloor float64
}

// Drive is a spring-damper.
type Drive struct {
	Stiffness float64
	Damping   float64
	MaxForce  float64
}

// Constraint are the settings of the constraints that hold grasped objects.
type Constraint struct {
	LinearDrive       Drive
	AngularDrive      Drive
	AnchorLinearLimit float64
	AnchorTwistLimit  float64
	AnchorConeLimit   float64
}

// Damping are the settings of the velocity damping applied to objects resting on the palm.
type Damping struct {
	Enabled bool
	Linear  float64
	Angular float64
}

// Retractuator are the settings of the force feedback filters, shared by every finger.
type Retractuator struct {
	ActuationThreshold float64
	FilterStrength     float64
	ReleaseThreshold   float64
}

// Whitelist lists the collision types that take part in each kind of interaction. An empty list
// lets every collision type through.
type Whitelist struct {
	Tactile       []string
	ForceFeedback []string
	Grasping      []string
}

// ObjectOverride overrides settings for a single object. Unset fields keep the global value.
type ObjectOverride struct {
	TriggersTactileFeedback *bool    `toml:",omitempty"`
	TriggersForceFeedback   *bool    `toml:",omitempty"`
	BaseContactTolerance    *float64 `toml:",omitempty"`
	Compliance              *float64 `toml:",omitempty"`
	CanBeGrasped            *bool    `toml:",omitempty"`
	GraspThreshold          *float64 `toml:",omitempty"`
	ReleaseHysteresis       *float64 `toml:",omitempty"`
	LinearDrive             *Drive   `toml:",omitempty"`
	AngularDrive            *Drive   `toml:",omitempty"`
	Damping                 *Damping `toml:",omitempty"`
}

// DefaultSettings returns the default settings.
func DefaultSettings() Settings {
	g := grasp.DefaultParameters()
	c := constraint.DefaultParameters()
	r := contact.DefaultRetractuatorParameters()
	return Settings{
		Grasp: Grasp{
			Threshold:          g.Threshold,
			ReleaseHysteresis:  g.ReleaseHysteresis,
			TimeConstant:       g.TimeConstant,
			ParticipationFloor: g.ParticipationFloor,
		},
		Constraint: Constraint{
			LinearDrive:       fromDrive(c.LinearDrive),
			AngularDrive:      fromDrive(c.AngularDrive),
			AnchorLinearLimit: c.AnchorLinearLimit,
			AnchorTwistLimit:  c.AnchorTwistLimit,
			AnchorConeLimit:   c.AnchorConeLimit,
		},
		Damping: Damping{Enabled: true, Linear: 300, Angular: 30},
		Retractuator: Retractuator{
			ActuationThreshold: r.ActuationThreshold,
			FilterStrength:     r.FilterStrength,
			ReleaseThreshold:   r.ReleaseThreshold,
		},
		Objects: map[string]ObjectOverride{},
	}
}

// SaveDefault will create and save the default settings file. If the file already exists, it will return an error.
func SaveDefault(path string) error {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return errors.New("settings file already exists")
	}
	return Save(path, DefaultSettings())
}

// Save writes settings to path, replacing any existing file.
func Save(path string, s Settings) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed encoding settings: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed creating settings file: %v", err)
	}
	return nil
}

// Load will load the settings from your settings file, and return an error if the file does not exist.
// Values missing from the file keep their defaults.
func Load(path string) (Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Settings{}, errors.New("settings file doesn't exist")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("error reading settings: %v", err)
	}

	s := DefaultSettings()
	if err = toml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("error decoding settings: %v", err)
	}
	if s.Objects == nil {
		s.Objects = map[string]ObjectOverride{}
	}
	return s, nil
}

// GraspParameters returns the grasp detection parameters.
func (s Settings) GraspParameters() grasp.Parameters {
	return grasp.Parameters{
		Threshold:          s.Grasp.Threshold,
		ReleaseHysteresis:  s.Grasp.ReleaseHysteresis,
		TimeConstant:       s.Grasp.TimeConstant,
		ParticipationFloor: s.Grasp.ParticipationFloor,
	}
}

// RetractuatorParameters returns the retractuator filter parameters.
func (s Settings) RetractuatorParameters() contact.RetractuatorParameters {
	return contact.RetractuatorParameters{
		ActuationThreshold: s.Retractuator.ActuationThreshold,
		FilterStrength:     s.Retractuator.FilterStrength,
		ReleaseThreshold:   s.Retractuator.ReleaseThreshold,
	}
}

// ConstraintParameters returns the grasp constraint parameters for an object.
func (s Settings) ConstraintParameters(object string) constraint.Parameters {
	p := constraint.Parameters{
		LinearDrive:       s.Constraint.LinearDrive.toDrive(),
		AngularDrive:      s.Constraint.AngularDrive.toDrive(),
		AnchorLinearLimit: s.Constraint.AnchorLinearLimit,
		AnchorTwistLimit:  s.Constraint.AnchorTwistLimit,
		AnchorConeLimit:   s.Constraint.AnchorConeLimit,
	}
	o, ok := s.Objects[object]
	if !ok {
		return p
	}
	if o.LinearDrive != nil {
		p.LinearDrive = o.LinearDrive.toDrive()
	}
	if o.AngularDrive != nil {
		p.AngularDrive = o.AngularDrive.toDrive()
	}
	return p
}

// GraspObjectParameters returns the grasp parameters of an object of the given collision type.
func (s Settings) GraspObjectParameters(object, collisionType string) grasp.ObjectParameters {
	p := grasp.DefaultObjectParameters()
	p.CanBeGrasped = whitelisted(s.Whitelist.Grasping, collisionType)
	o, ok := s.Objects[object]
	if !ok {
		return p
	}
	if o.CanBeGrasped != nil {
		p.CanBeGrasped = *o.CanBeGrasped
	}
	if o.GraspThreshold != nil {
		p.Threshold = lo.ToPtr(*o.GraspThreshold)
	}
	if o.ReleaseHysteresis != nil {
		p.ReleaseHysteresis = lo.ToPtr(*o.ReleaseHysteresis)
	}
	return p
}

// ContactObjectParameters returns the contact parameters of an object of the given collision type.
func (s Settings) ContactObjectParameters(object, collisionType string) contact.ObjectParameters {
	p := contact.DefaultObjectParameters()
	p.TriggersTactileFeedback = whitelisted(s.Whitelist.Tactile, collisionType)
	p.TriggersForceFeedback = whitelisted(s.Whitelist.ForceFeedback, collisionType)
	o, ok := s.Objects[object]
	if !ok {
		return p
	}
	if o.TriggersTactileFeedback != nil {
		p.TriggersTactileFeedback = *o.TriggersTactileFeedback
	}
	if o.TriggersForceFeedback != nil {
		p.TriggersForceFeedback = *o.TriggersForceFeedback
	}
	if o.BaseContactTolerance != nil {
		p.BaseContactTolerance = *o.BaseContactTolerance
	}
	if o.Compliance != nil {
		p.Compliance = *o.Compliance
	}
	return p
}

// DampingFor returns the contact damping settings for an object.
func (s Settings) DampingFor(object string) Damping {
	if o, ok := s.Objects[object]; ok && o.Damping != nil {
		return *o.Damping
	}
	return s.Damping
}

// DampingSpec returns the spec of a damping constraint between a palm and an object.
func (d Damping) DampingSpec(palm, object physics.BodyRef, location mgl64.Vec3) physics.ConstraintSpec {
	return physics.ConstraintSpec{
		Kind:         physics.ConstraintKindDamping,
		Body1:        palm,
		Body2:        object,
		Location:     location,
		LinearDrive:  physics.Drive{Damping: d.Linear, VelocityDrive: true},
		AngularDrive: physics.Drive{Damping: d.Angular, VelocityDrive: true},
	}
}

func whitelisted(list []string, collisionType string) bool {
	return len(list) == 0 || slices.Contains(list, collisionType)
}

func fromDrive(d physics.Drive) Drive {
	return Drive{Stiffness: d.Stiffness, Damping: d.Damping, MaxForce: d.MaxForce}
}

func (d Drive) toDrive() physics.Drive {
	return physics.Drive{
		Stiffness:     d.Stiffness,
		Damping:       d.Damping,
		MaxForce:      d.MaxForce,
		PositionDrive: d.Stiffness > 0,
		VelocityDrive: d.Damping > 0,
	}
}
