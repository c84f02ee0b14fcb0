package analytics

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kioko/matchpulse/internal/domain/event"
)

// Formation model constants. Outfielders are split into thirds of the
// occupied depth; compactness decays linearly with the mean distance from
// the centroid.
const (
	formationBands      = 3
	outfieldSquadSize   = 10
	compactnessScale    = 50.0
	confidenceSampleRef = 10.0
	pressingLineX       = event.PitchMaxX / 2
)

// FormationPosition is one player's average spot in the team shape. The
// standard deviations capture how much freedom the player takes around it.
type FormationPosition struct {
	PlayerID     string  `json:"player_id"`
	JerseyNumber int     `json:"jersey_number"`
	Role         Role    `json:"role"`
	AvgX         float64 `json:"avg_x"`
	AvgY         float64 `json:"avg_y"`
	StdX         float64 `json:"std_x"`
	StdY         float64 `json:"std_y"`
}

// TeamFormation is the tactical shape derived from a team's tracking
// samples: a named formation, the per-player average positions and the
// aggregate shape metrics.
type TeamFormation struct {
	FormationID string    `json:"formation_id"`
	MatchID     string    `json:"match_id"`
	TeamID      string    `json:"team_id"`
	Timestamp   time.Time `json:"timestamp"`

	FormationName string  `json:"formation_name"`
	Confidence    float64 `json:"confidence"`

	PlayerPositions []FormationPosition `json:"player_positions"`

	Compactness float64 `json:"compactness"`
	Width       float64 `json:"width"`
	Depth       float64 `json:"depth"`

	CentroidX float64 `json:"centroid_x"`
	CentroidY float64 `json:"centroid_y"`

	DefensiveLine     float64 `json:"defensive_line"`
	OffensiveLine     float64 `json:"offensive_line"`
	PressingIntensity float64 `json:"pressing_intensity"`
}

// Formation derives a team's shape from its tracking samples. The deepest
// player is taken as the goalkeeper; the remaining players are banded into
// defense, midfield and attack by their average depth, which names the
// formation ("4-3-3"). Confidence rises with squad coverage and with how
// many samples back each average.
func Formation(matchID, teamID string, samples []*event.TrackingEvent) TeamFormation {
	f := TeamFormation{
		FormationID:   uuid.NewString(),
		MatchID:       matchID,
		TeamID:        teamID,
		Timestamp:     time.Now().UTC(),
		FormationName: "unknown",
	}

	positions := averagePositions(samples)
	if len(positions) == 0 {
		return f
	}
	f.PlayerPositions = positions

	// Deepest player keeps goal; everyone else shapes the formation.
	positions[0].Role = RoleGoalkeeper
	outfield := positions[1:]
	if len(outfield) == 0 {
		return f
	}

	defLine := outfield[0].AvgX
	offLine := outfield[len(outfield)-1].AvgX
	f.DefensiveLine = defLine
	f.OffensiveLine = offLine
	f.Depth = offLine - defLine

	var sumX, sumY, minY, maxY float64
	minY, maxY = outfield[0].AvgY, outfield[0].AvgY
	pressing := 0
	for _, p := range outfield {
		sumX += p.AvgX
		sumY += p.AvgY
		minY = math.Min(minY, p.AvgY)
		maxY = math.Max(maxY, p.AvgY)
		if p.AvgX > pressingLineX {
			pressing++
		}
	}
	f.Width = maxY - minY
	f.CentroidX = sumX / float64(len(outfield))
	f.CentroidY = sumY / float64(len(outfield))
	f.PressingIntensity = float64(pressing) / float64(len(outfield))

	var spread float64
	for _, p := range outfield {
		spread += math.Hypot(p.AvgX-f.CentroidX, p.AvgY-f.CentroidY)
	}
	spread /= float64(len(outfield))
	f.Compactness = clamp(1-spread/compactnessScale, 0, 1)

	f.FormationName = bandName(outfield, defLine, offLine)
	f.Confidence = confidence(outfield, samples)

	return f
}

// averagePositions reduces the samples to one averaged position per player,
// sorted from the deepest player forward.
func averagePositions(samples []*event.TrackingEvent) []FormationPosition {
	type acc struct {
		jersey int
		xs, ys []float64
	}
	byPlayer := make(map[string]*acc)
	for _, te := range samples {
		a := byPlayer[te.PlayerID]
		if a == nil {
			a = &acc{jersey: te.JerseyNumber}
			byPlayer[te.PlayerID] = a
		}
		a.xs = append(a.xs, te.Position.X)
		a.ys = append(a.ys, te.Position.Y)
	}

	positions := make([]FormationPosition, 0, len(byPlayer))
	for playerID, a := range byPlayer {
		avgX, stdX := meanStd(a.xs)
		avgY, stdY := meanStd(a.ys)
		positions = append(positions, FormationPosition{
			PlayerID:     playerID,
			JerseyNumber: a.jersey,
			AvgX:         avgX,
			AvgY:         avgY,
			StdX:         stdX,
			StdY:         stdY,
		})
	}

	sort.Slice(positions, func(i, j int) bool {
		if positions[i].AvgX != positions[j].AvgX {
			return positions[i].AvgX < positions[j].AvgX
		}
		return positions[i].PlayerID < positions[j].PlayerID
	})
	return positions
}

// bandName counts the outfielders per depth third and assigns their roles.
func bandName(outfield []FormationPosition, defLine, offLine float64) string {
	span := offLine - defLine
	counts := make([]int, formationBands)
	for i := range outfield {
		band := 0
		if span > 0 {
			band = int(float64(formationBands) * (outfield[i].AvgX - defLine) / span)
			if band >= formationBands {
				band = formationBands - 1
			}
		}
		counts[band]++
		switch band {
		case 0:
			outfield[i].Role = RoleDefender
		case 1:
			outfield[i].Role = RoleMidfielder
		default:
			outfield[i].Role = RoleForward
		}
	}
	name := ""
	for i, n := range counts {
		if i > 0 {
			name += "-"
		}
		name += strconv.Itoa(n)
	}
	return name
}

// confidence combines squad coverage with sample depth, both capped at 1.
func confidence(outfield []FormationPosition, samples []*event.TrackingEvent) float64 {
	coverage := math.Min(1, float64(len(outfield))/outfieldSquadSize)
	perPlayer := float64(len(samples)) / float64(len(outfield)+1)
	depth := math.Min(1, perPlayer/confidenceSampleRef)
	return clamp(coverage*(0.5+0.5*depth), 0, 1)
}

func meanStd(vs []float64) (mean, std float64) {
	for _, v := range vs {
		mean += v
	}
	mean /= float64(len(vs))
	for _, v := range vs {
		std += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(std / float64(len(vs)))
}

