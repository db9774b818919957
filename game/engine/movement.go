package engine

// Apply computes the state that follows taking action from state. It never
// fails: position stays on the grid, CO2 stays within [0, MaxCO2] and
// HighScore never drops below Score.
func Apply(state GridState, action Action, config *GameConfig) GridState {
	next := state

	if !next.OnTerminal(config) {
		next.X, next.Y = Move(next.X, next.Y, steps(action.StepDelta, config.StepMode), config.Cols, config.Rows)
	}

	next.Score += action.ScoreDelta
	next.CO2 = clamp(next.CO2+action.CO2Delta, 0, config.MaxCO2)
	if next.Score > next.HighScore {
		next.HighScore = next.Score
	}
	if action.Icon != "" {
		next.Icon = action.Icon
	}

	return next
}

// Move walks delta cells from (x, y), one cell at a time. Crossing a row
// boundary wraps into the next (or previous) row; the first and last rows
// clamp instead of wrapping off the grid.
func Move(x, y, delta, cols, rows int) (int, int) {
	for ; delta > 0; delta-- {
		x++
		if x >= cols {
			x = 0
			y++
			if y >= rows {
				y = rows - 1
			}
		}
	}
	for ; delta < 0; delta++ {
		x--
		if x < 0 {
			x = cols - 1
			y--
			if y < 0 {
				y = 0
			}
		}
	}
	return x, y
}

// OnTerminal reports whether the state sits on the run-ending cell
func (gs GridState) OnTerminal(config *GameConfig) bool {
	tx, ty := config.Terminal()
	return gs.X == tx && gs.Y == ty
}

// InBounds reports whether the position is on the grid
func (gs GridState) InBounds(config *GameConfig) bool {
	return gs.X >= 0 && gs.X < config.Cols && gs.Y >= 0 && gs.Y < config.Rows
}

// ShortestRoute returns the minimum number of actions needed to reach the
// terminal cell from (0, 0) using the configured actions
func ShortestRoute(config *GameConfig) (int, bool) {
	if config == nil || config.Cols <= 0 || config.Rows <= 0 {
		return 0, false
	}

	type cell struct{ x, y int }
	tx, ty := config.Terminal()
	start := cell{0, 0}
	if start.x == tx && start.y == ty {
		return 0, true
	}

	dist := map[cell]int{start: 0}
	queue := []cell{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, action := range config.Actions {
			nx, ny := Move(cur.x, cur.y, steps(action.StepDelta, config.StepMode), config.Cols, config.Rows)
			next := cell{nx, ny}
			if _, seen := dist[next]; seen {
				continue
			}
			dist[next] = dist[cur] + 1
			if nx == tx && ny == ty {
				return dist[next], true
			}
			queue = append(queue, next)
		}
	}

	return 0, false
}

// steps converts a step delta into the number of cells to walk
func steps(delta int, mode StepMode) int {
	if mode != StepSingle {
		return delta
	}
	switch {
	case delta > 0:
		return 1
	case delta < 0:
		return -1
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
