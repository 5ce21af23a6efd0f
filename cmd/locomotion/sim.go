package main

import (
	"github.com/bipedlab/locomotion/internal/gait"
)

// simRobot is an open-loop simulation that tracks the plan perfectly: body
// poses follow the planned motions and contact force appears whenever a
// tracked body reaches ground height. It exists so the binary can run a plan
// end to end without robot hardware.
type simRobot struct {
	kin  *gait.MockKinematics
	plan *gait.Plan
	nq   int
	nv   int
}

const groundContactHeight = 1e-3

func newSimRobot(plan *gait.Plan) *simRobot {
	maxBody := int(plan.PelvisBody)
	for _, bm := range plan.BodyMotions {
		if int(bm.Body) > maxBody {
			maxBody = int(bm.Body)
		}
	}
	for _, phase := range plan.Supports {
		for _, e := range phase {
			if int(e.Body) > maxBody {
				maxBody = int(e.Body)
			}
		}
	}
	nq, nv := 2, 2
	if !plan.QTrajectory.Empty() {
		nq = plan.QTrajectory.Rows()
		nv = nq
	}
	return &simRobot{
		kin:  gait.NewMockKinematics(maxBody+1, nq, nv),
		plan: plan,
		nq:   nq,
		nv:   nv,
	}
}

// sample advances the simulated robot to plan time t and returns its state.
func (s *simRobot) sample(t float64) (q, v []float64, contacts []bool) {
	if d := s.plan.Duration(); t > d {
		t = d
	}

	contacts = make([]bool, s.kin.NumBodies())
	for i := range s.plan.BodyMotions {
		bm := &s.plan.BodyMotions[i]
		val := bm.Trajectory.Value(t)
		var pos [3]float64
		copy(pos[:], val[:3])
		s.kin.Poses[bm.Body] = gait.Pose{Position: pos, Quaternion: [4]float64{1, 0, 0, 0}}
		if bm.Body != s.plan.PelvisBody && pos[2] <= groundContactHeight {
			contacts[bm.Body] = true
		}
	}

	com := s.plan.COMTrajectory.Value(t)
	comVel := s.plan.COMTrajectory.EvalDerivative(t)
	copy(s.kin.CoM[:], com[:min(3, len(com))])
	copy(s.kin.CoMVel[:], comVel[:min(3, len(comVel))])

	q = make([]float64, s.nq)
	v = make([]float64, s.nv)
	if !s.plan.QTrajectory.Empty() {
		copy(q, s.plan.QTrajectory.Value(t))
		copy(v, s.plan.QTrajectory.EvalDerivative(t))
	}
	return q, v, contacts
}
