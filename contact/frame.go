package contact

// PeripheralID identifies a haptic peripheral, such as a glove.
type PeripheralID uint32

// TactorID identifies a tactor within a peripheral.
type TactorID uint32

// RetractuatorID identifies a retractuator within a peripheral.
type RetractuatorID uint32

// TactorTarget is the height a tactor should be driven to.
type TactorTarget struct {
	Tactor TactorID
	Height float32 // Metres.
}

// RetractuatorTarget is the desired state of a retractuator.
type RetractuatorTarget struct {
	Retractuator RetractuatorID
	Engaged      bool
	// Force is the filtered force [N] the decision was based on.
	Force float64
}

// HapticFrame is the output of one tick for one contacted peripheral.
type HapticFrame struct {
	Peripheral    PeripheralID
	Tactors       []TactorTarget
	Retractuators []RetractuatorTarget
	// CompressionScale is the scale the tactor heights were compressed by.
	CompressionScale float32
}

// PneumaticFrame is what gets rendered to hardware.
type PneumaticFrame struct {
	TactorHeights        map[TactorID]float32
	RetractuatorsEngaged map[RetractuatorID]bool
}

// Pneumatic converts a haptic frame into the frame rendered to hardware.
func (f HapticFrame) Pneumatic() PneumaticFrame {
	p := PneumaticFrame{
		TactorHeights:        make(map[TactorID]float32, len(f.Tactors)),
		RetractuatorsEngaged: make(map[RetractuatorID]bool, len(f.Retractuators)),
	}
	for _, t := range f.Tactors {
		p.TactorHeights[t.Tactor] = t.Height
	}
	for _, r := range f.Retractuators {
		p.RetractuatorsEngaged[r.Retractuator] = r.Engaged
	}
	return p
}
