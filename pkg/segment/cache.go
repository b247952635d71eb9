package segment

// Cache memoizes the segment list per scenario and tracks how far into
// each scenario's script the player has been narrated. Progress only
// moves forward within a scenario visit.
type Cache struct {
	segments map[int][]string
	progress map[int]int
}

func NewCache() *Cache {
	return &Cache{
		segments: make(map[int][]string),
		progress: make(map[int]int),
	}
}

// Ensure computes and caches the segments for a scenario exactly once.
// A scenario with no content yields an empty list.
func (c *Cache) Ensure(scenarioID int, content string) []string {
	if segs, ok := c.segments[scenarioID]; ok {
		return segs
	}
	segs := Split(content)
	c.segments[scenarioID] = segs
	return segs
}

// Progress returns the player's current segment index for a scenario.
func (c *Cache) Progress(scenarioID int) int {
	return c.progress[scenarioID]
}

// SetProgress records the segment index for a scenario. The index never
// moves backwards.
func (c *Cache) SetProgress(scenarioID, index int) {
	if index > c.progress[scenarioID] {
		c.progress[scenarioID] = index
	}
}

// Advance moves a scenario's progress to the next segment and returns
// the new index.
func (c *Cache) Advance(scenarioID int) int {
	c.progress[scenarioID]++
	return c.progress[scenarioID]
}

// Window returns the next unrevealed segment and the segment after it,
// for bounding the narration of the current turn. Either value may be
// empty when the script has run out.
func (c *Cache) Window(scenarioID int) (from, to string) {
	segs := c.segments[scenarioID]
	idx := c.progress[scenarioID]
	if idx < len(segs) {
		from = segs[idx]
	}
	if idx+1 < len(segs) {
		to = segs[idx+1]
	}
	return from, to
}
