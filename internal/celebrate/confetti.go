// Package celebrate runs the party once the candle is out: confetti, music
// and a bell standing in for the phone's vibration motor.
package celebrate

import (
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/blowout/internal/config"
)

// Palette matches the classic browser confetti colours.
var palette = []lipgloss.Color{
	"#26CCFF", "#A25AFD", "#FF5E7E", "#88FF5A", "#FCFF42", "#FFA62D", "#FF36FF",
}

var glyphs = []rune{'*', '•', '▪', '◆', '✦', '+'}

// Particle is one piece of confetti, in canvas coordinates where the canvas
// is config.ConfettiCanvas units square.
type Particle struct {
	X, Y     float64
	Angle    float64 // radians
	Velocity float64
	Tick     int
	Glyph    rune
	Color    int
}

// Confetti is the fixed-length confetti show. Step it once per animation
// frame and render the result.
type Confetti struct {
	rng       *rand.Rand
	elapsed   time.Duration
	nextBurst time.Duration
	particles []Particle
	emitted   int
}

// NewConfetti creates a show whose randomness is fully determined by seed.
func NewConfetti(seed uint64) *Confetti {
	return &Confetti{
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		nextBurst: config.ConfettiInterval,
	}
}

// BurstSize is the number of particles each origin emits when timeLeft of
// the show remains. It shrinks linearly to zero.
func BurstSize(timeLeft time.Duration) int {
	if timeLeft <= 0 {
		return 0
	}
	return int(config.ConfettiParticles * float64(timeLeft) / float64(config.ConfettiDuration))
}

// Step advances the show by one frame lasting dt. Existing particles move
// first; bursts that fell due during dt are emitted at their origins.
func (c *Confetti) Step(dt time.Duration) {
	alive := c.particles[:0]
	for _, p := range c.particles {
		p.X += math.Cos(p.Angle) * p.Velocity
		p.Y += math.Sin(p.Angle)*p.Velocity + config.ConfettiGravity*3
		p.Velocity *= config.ConfettiDecay
		p.Tick++
		if p.Tick < config.ConfettiTicks {
			alive = append(alive, p)
		}
	}
	c.particles = alive

	c.elapsed += dt
	for c.nextBurst <= c.elapsed && c.nextBurst < config.ConfettiDuration {
		count := BurstSize(config.ConfettiDuration - c.nextBurst)
		c.burst(count, 0.1, 0.3)
		c.burst(count, 0.7, 0.9)
		c.nextBurst += config.ConfettiInterval
	}
}

func (c *Confetti) burst(count int, minX, maxX float64) {
	originX := (minX + c.rng.Float64()*(maxX-minX)) * config.ConfettiCanvas
	originY := (c.rng.Float64() - 0.2) * config.ConfettiCanvas
	spread := config.ConfettiSpread * math.Pi / 180

	for range count {
		c.particles = append(c.particles, Particle{
			X:        originX,
			Y:        originY,
			Angle:    -math.Pi/2 + (c.rng.Float64()-0.5)*spread,
			Velocity: config.ConfettiStartVelocity*0.5 + c.rng.Float64()*config.ConfettiStartVelocity,
			Glyph:    glyphs[c.rng.IntN(len(glyphs))],
			Color:    c.rng.IntN(len(palette)),
		})
	}
	c.emitted += count
}

// Particles returns the live particles.
func (c *Confetti) Particles() []Particle {
	return c.particles
}

// Emitted returns the total number of particles launched so far.
func (c *Confetti) Emitted() int {
	return c.emitted
}

// Elapsed returns how far into the show we are.
func (c *Confetti) Elapsed() time.Duration {
	return c.elapsed
}

// Done reports whether the show is over and every particle has landed.
func (c *Confetti) Done() bool {
	return c.elapsed >= config.ConfettiDuration && len(c.particles) == 0
}

// Render draws the particles onto a width x height character grid. Cells
// without confetti are blank.
func (c *Confetti) Render(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	cells := make(map[int]Particle)

	for _, p := range c.particles {
		col := int(p.X / config.ConfettiCanvas * float64(width))
		row := int(p.Y / config.ConfettiCanvas * float64(height))
		if col < 0 || col >= width || row < 0 || row >= height {
			continue
		}
		cells[row*width+col] = p
	}

	var sb strings.Builder
	for y := range height {
		for x := range width {
			p, ok := cells[y*width+x]
			if !ok {
				sb.WriteByte(' ')
				continue
			}
			sb.WriteString(lipgloss.NewStyle().Foreground(palette[p.Color]).Render(string(p.Glyph)))
		}
		if y < height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
