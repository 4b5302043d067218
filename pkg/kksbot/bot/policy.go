package bot

import (
	"math/rand"
	"time"
)

// EngagementPolicy decides whether a message that does not address the
// bot deserves a spontaneous reply. The chance is the base probability
// scaled by the hour of day and the channel mood.
type EngagementPolicy struct {
	BaseChance  float64
	Cooldown    time.Duration
	HourFactors [24]float64
	MoodFactors map[string]float64

	rand func() float64
	now  func() time.Time
}

// NewEngagementPolicy builds a policy from configuration.
func NewEngagementPolicy(cfg EngagementConfig) *EngagementPolicy {
	p := &EngagementPolicy{
		BaseChance: cfg.BaseChance,
		Cooldown:   cfg.Cooldown(),
		MoodFactors: map[string]float64{
			MoodRelaxed: 1.5,
			MoodTense:   0.5,
			MoodNeutral: 1.0,
		},
		rand: rand.Float64,
		now:  time.Now,
	}
	for h := 0; h < 24; h++ {
		switch {
		case h <= 6:
			p.HourFactors[h] = cfg.NightFactor
		case h <= 12:
			p.HourFactors[h] = cfg.MorningFactor
		case h <= 18:
			p.HourFactors[h] = cfg.AfternoonFactor
		default:
			p.HourFactors[h] = cfg.EveningFactor
		}
	}
	return p
}

// ShouldRespond decides whether to reply. Addressed messages always
// pass. Unaddressed ones are dropped inside the cooldown and otherwise
// rolled against the scaled chance.
func (p *EngagementPolicy) ShouldRespond(addressed bool, sinceLastReply time.Duration, mood string) bool {
	if addressed {
		return true
	}
	if sinceLastReply >= 0 && sinceLastReply < p.Cooldown {
		return false
	}
	return p.rand() < p.chance(p.now().Hour(), mood)
}

func (p *EngagementPolicy) chance(hour int, mood string) float64 {
	c := p.BaseChance * p.HourFactors[hour%24]
	if f, ok := p.MoodFactors[mood]; ok {
		c *= f
	}
	if c > 1 {
		c = 1
	}
	return c
}
