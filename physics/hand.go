package physics

import "fmt"

// Side is the side of the body a hand belongs to.
type Side uint8

const (
	SideLeft Side = iota
	SideRight
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// Finger identifies a finger.
type Finger uint8

const (
	FingerThumb Finger = iota
	FingerIndex
	FingerMiddle
	FingerRing
	FingerPinky
	FingerCount
)

func (f Finger) String() string {
	switch f {
	case FingerThumb:
		return "thumb"
	case FingerIndex:
		return "index"
	case FingerMiddle:
		return "middle"
	case FingerRing:
		return "ring"
	case FingerPinky:
		return "pinky"
	}
	return fmt.Sprintf("finger(%d)", f)
}

// FingerJoint identifies a joint along a finger, from the knuckle outwards.
type FingerJoint uint8

const (
	JointProximal FingerJoint = iota
	JointMedial
	JointDistal
	JointsPerFinger
)

// JointCount is the number of driven finger joints in a hand.
const JointCount = int(FingerCount) * int(JointsPerFinger)

// JointIndex flattens a finger and joint into an index of Targets.JointOrientations.
func JointIndex(f Finger, j FingerJoint) int {
	return int(JointsPerFinger)*int(f) + int(j)
}

// BodyPart is the physical region of a hand a body represents.
type BodyPart uint8

const (
	BodyPartUnknown BodyPart = iota
	BodyPartPalm
	BodyPartProximal
	BodyPartMedial
	BodyPartDistal
)

// Bone is the name of a bone in a hand skeleton.
type Bone string

// HandBones lists the bone names of a hand skeleton.
type HandBones struct {
	Palm   Bone
	Joints [FingerCount][JointsPerFinger]Bone
}

// DefaultHandBones returns the bone names used by the default hand skeleton.
func DefaultHandBones() HandBones {
	b := HandBones{Palm: "palm"}
	for f := FingerThumb; f < FingerCount; f++ {
		for j := JointProximal; j < JointsPerFinger; j++ {
			b.Joints[f][j] = Bone(fmt.Sprintf("%s%d", f, j+1))
		}
	}
	return b
}

// Middle1 returns the bone whose transform the palm drive steers.
func (b HandBones) Middle1() Bone {
	return b.Joints[FingerMiddle][JointProximal]
}
