package core

import (
	"testing"
	"time"

	"github.com/signalsfoundry/constellation-netview/model"
)

// ISS sample TLE.
const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func TestStaticMotionModel_NoChange(t *testing.T) {
	m := &StaticMotionModel{}
	p := &model.PlatformDefinition{
		Coordinates: model.Motion{X: 1, Y: 2, Z: 3},
	}

	t1 := time.Now().UTC()
	m.UpdatePosition(t1, p)
	m.UpdatePosition(t1.Add(time.Hour), p)
	if p.Coordinates != (model.Motion{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("static motion should not change coordinates, got %#v", p.Coordinates)
	}
}

// We don't assert exact orbital values (those belong to go-satellite);
// we just ensure that positions differ at distinct times.
func TestOrbitalSGP4MotionModel_ChangesOverTime(t *testing.T) {
	m := NewOrbitalModelFromTLE(issTLE1, issTLE2)
	p := &model.PlatformDefinition{}

	t1 := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(5 * time.Minute)

	m.UpdatePosition(t1, p)
	first := p.Coordinates

	m.UpdatePosition(t2, p)
	second := p.Coordinates

	if first == second {
		t.Fatalf("expected orbital position to change over time, got %+v at both times", first)
	}
}

func TestNewMotionModelSelectsByPlatform(t *testing.T) {
	orbital := &model.PlatformDefinition{MotionSource: model.MotionSourceTLE, TLE1: issTLE1, TLE2: issTLE2}
	if _, ok := NewMotionModel(orbital).(*OrbitalSGP4MotionModel); !ok {
		t.Fatalf("expected SGP4 model for platform with TLE")
	}

	missingLines := &model.PlatformDefinition{MotionSource: model.MotionSourceTLE}
	if _, ok := NewMotionModel(missingLines).(*StaticMotionModel); !ok {
		t.Fatalf("expected static model when TLE lines are missing")
	}
}

func TestFleetMovesOrbitingNodesOnly(t *testing.T) {
	sat := &Node{ID: "sat1", Platform: &model.PlatformDefinition{ID: "p-sat", MotionSource: model.MotionSourceTLE, TLE1: issTLE1, TLE2: issTLE2}}
	ground := &Node{ID: "gs1", Platform: &model.PlatformDefinition{ID: "p-gs", Coordinates: model.Motion{X: 6371000}}}
	orphan := &Node{ID: "orphan"}

	fleet := NewFleet([]*Node{sat, ground, orphan, nil})

	t1 := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	fleet.UpdatePositions(t1)
	first := sat.Position()
	fleet.UpdatePositions(t1.Add(10 * time.Minute))

	if sat.Position() == first {
		t.Fatalf("satellite did not move between frames")
	}
	if got := ground.Position(); got != (Vec3{X: 6371}) {
		t.Fatalf("ground position = %+v, want (6371,0,0) km", got)
	}
	if got := orphan.Position(); got != (Vec3{}) {
		t.Fatalf("node without platform should sit at origin, got %+v", got)
	}
}
