package page

import (
	"sync"
	"time"
)

// PlaybackClock simule la position de lecture d'une vidéo à partir de
// l'horloge murale. Utilisé par l'hôte statique.
type PlaybackClock struct {
	mu     sync.Mutex
	now    func() time.Time
	start  time.Time
	offset float64
	paused bool
	frozen float64 // position au moment de la pause
}

// NewPlaybackClock démarre une lecture à la position offset (secondes).
func NewPlaybackClock(offset float64) *PlaybackClock {
	return newPlaybackClock(offset, time.Now)
}

func newPlaybackClock(offset float64, now func() time.Time) *PlaybackClock {
	return &PlaybackClock{now: now, start: now(), offset: offset}
}

// Position retourne la position courante en secondes.
func (c *PlaybackClock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *PlaybackClock) positionLocked() float64 {
	if c.paused {
		return c.frozen
	}
	return c.offset + c.now().Sub(c.start).Seconds()
}

// Seek repositionne la lecture (l'état pause est conservé).
func (c *PlaybackClock) Seek(pos float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if pos < 0 {
		pos = 0
	}
	c.start = c.now()
	c.offset = pos
	c.frozen = pos
}

// TogglePause met en pause ou relance ; retourne true si en pause.
func (c *PlaybackClock) TogglePause() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		c.start = c.now()
		c.offset = c.frozen
		c.paused = false
		return false
	}
	c.frozen = c.positionLocked()
	c.paused = true
	return true
}
