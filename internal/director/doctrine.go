package director

import (
	"fmt"

	"github.com/frontline/warsim/internal/war"
)

// Doctrine splits a faction's strong squads between attack, defend and
// patrol. The three shares are normalized before use.
type Doctrine struct {
	Name   string  `yaml:"name" json:"name"`
	Attack float64 `yaml:"attack" json:"attack"`
	Defend float64 `yaml:"defend" json:"defend"`
	Patrol float64 `yaml:"patrol" json:"patrol"`
}

// Validate rejects negative or all-zero shares.
func (d Doctrine) Validate() error {
	if d.Attack < 0 || d.Defend < 0 || d.Patrol < 0 {
		return fmt.Errorf("doctrine %q: negative share", d.Name)
	}
	if d.Attack+d.Defend+d.Patrol == 0 {
		return fmt.Errorf("doctrine %q: all shares zero", d.Name)
	}
	return nil
}

// Normalize clamps negative shares and scales the rest to sum to 1.
// An unusable doctrine becomes an even three-way split.
func (d Doctrine) Normalize() Doctrine {
	d.Attack = max(d.Attack, 0)
	d.Defend = max(d.Defend, 0)
	d.Patrol = max(d.Patrol, 0)
	sum := d.Attack + d.Defend + d.Patrol
	if sum == 0 {
		d.Attack, d.Defend, d.Patrol = 1.0/3, 1.0/3, 1.0/3
		return d
	}
	d.Attack /= sum
	d.Defend /= sum
	d.Patrol /= sum
	return d
}

// Split divides n strong squads into attack, defend and patrol counts.
// Rounding leftovers go to patrol.
func (d Doctrine) Split(n int) (attack, defend, patrol int) {
	d = d.Normalize()
	attack = int(float64(n)*d.Attack + 0.5)
	if attack > n {
		attack = n
	}
	defend = int(float64(n)*d.Defend + 0.5)
	if defend > n-attack {
		defend = n - attack
	}
	return attack, defend, n - attack - defend
}

// Defensive and Offensive are the two stock profiles.
var (
	Defensive = Doctrine{Name: "defensive", Attack: 0.20, Defend: 0.50, Patrol: 0.30}
	Offensive = Doctrine{Name: "offensive", Attack: 0.50, Defend: 0.25, Patrol: 0.25}
)

// DefaultDoctrines gives BLUFOR the defensive profile and OPFOR the
// offensive one.
func DefaultDoctrines() StaticDoctrines {
	return StaticDoctrines{war.Blufor: Defensive, war.Opfor: Offensive}
}

// Context is the faction situation a doctrine source may react to.
type Context struct {
	Faction   war.Faction
	Alive     int
	Total     int
	Strong    int
	Weak      int
	Spent     int
	Owned     int
	Enemy     int
	Contested int
	Neutral   int
	Elapsed   float64
}

// DoctrineSource picks the doctrine for a faction at plan time.
type DoctrineSource interface {
	Doctrine(f war.Faction, ctx Context) Doctrine
}

// StaticDoctrines is a fixed per-faction table. Missing factions get an even
// split.
type StaticDoctrines map[war.Faction]Doctrine

func (s StaticDoctrines) Doctrine(f war.Faction, _ Context) Doctrine {
	if d, ok := s[f]; ok {
		return d
	}
	return Doctrine{Name: "balanced", Attack: 1, Defend: 1, Patrol: 1}
}
