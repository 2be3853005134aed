package seed

// segment is one piece of a piecewise-linear curve: for episodes up to and
// including until, the value is start + (episode-from)*slope.
type segment struct {
	until int
	from  int
	start float64
	slope float64
}

func flat(until int, value float64) segment {
	return segment{until: until, start: value}
}

// ramp goes linearly from start at episode from to end at episode until.
func ramp(from, until int, start, end float64) segment {
	return segment{until: until, from: from, start: start, slope: (end - start) / float64(until-from)}
}

type milestone struct {
	episode int
	best    float64
}

// variant describes the reference curves of one algorithm.
type variant struct {
	algorithm  string
	avg        []segment
	bestStart  float64
	milestones []milestone
	loss       []segment
	tests      []float64
	finalTests []float64
}

var variants = []variant{
	{
		algorithm: "Vanilla DQN",
		avg: []segment{
			flat(10, -129.48),
			ramp(10, 50, -123.13, -79.76),
			flat(100, -79.76),
			ramp(100, 200, -79.76, 27.80),
			ramp(200, 400, 27.80, 144.49),
			ramp(400, 700, 144.49, 72.21),
			ramp(700, 760, 72.21, 249.50),
			ramp(760, 990, 249.50, -22.90),
			flat(Episodes, 38.77),
		},
		bestStart: -136.73,
		milestones: []milestone{
			{18, 25.11}, {47, 108.96}, {225, 114.72}, {233, 139.11},
			{276, 251.33}, {425, 277.61}, {427, 300.01}, {666, 302.21}, {696, 308.03},
		},
		loss: []segment{
			{until: 100, from: 1, start: 26.25, slope: -0.1},
			flat(200, 6.99),
			ramp(200, 400, 6.99, 24.99),
			ramp(400, 600, 24.99, 32.26),
			ramp(600, 800, 32.26, 15.16),
			ramp(800, 930, 15.16, 54.99),
			ramp(930, Episodes, 54.99, 28.97),
		},
		tests:      []float64{-49.08, -194.01, 121.66, -221.92, 211.81, -142.77, 300.11, -49.75, 294.13, 182.79},
		finalTests: []float64{238.31, 242.60, 220.71},
	},
	{
		algorithm: "Double DQN",
		avg: []segment{
			flat(10, -174.07),
			ramp(10, 50, -174.07, -101.16),
			flat(100, -117.98),
			ramp(100, 400, -117.98, -28.00),
			ramp(400, 700, -28.00, 195.88),
			ramp(700, 980, 195.88, 261.94),
			flat(Episodes, 140.51),
		},
		bestStart: 2.30,
		milestones: []milestone{
			{35, 20.09}, {134, 116.54}, {250, 124.94}, {307, 259.02},
			{527, 310.32}, {619, 310.70},
		},
		loss: []segment{
			{until: 100, from: 1, start: 30.02, slope: -0.2},
			flat(200, 5.06),
			ramp(200, 400, 5.06, 2.46),
			ramp(400, 600, 2.46, 14.21),
			ramp(600, 800, 14.21, 21.42),
			ramp(800, Episodes, 21.42, 24.54),
		},
		tests:      []float64{-99.47, -71.00, -18.00, -17.41, 234.90, 114.98, 223.02, 20.16, -3.63, 217.93},
		finalTests: []float64{219.52, 193.40, 192.39},
	},
	{
		algorithm: "Dueling DQN",
		avg: []segment{
			flat(10, -138.62),
			ramp(10, 100, -138.62, -128.55),
			ramp(100, 400, -128.55, -31.10),
			ramp(400, 700, -31.10, 82.36),
			ramp(700, 900, 82.36, 157.47),
			flat(Episodes, 71.93),
		},
		bestStart: -146.79,
		milestones: []milestone{
			{42, 22.57}, {400, 189.26}, {654, 297.95}, {867, 301.77},
		},
		loss: []segment{
			flat(100, 24.28),
			flat(200, 5.11),
			flat(400, 19.63),
			flat(600, 27.45),
			flat(800, 23.17),
			flat(900, 37.62),
			flat(Episodes, 26.21),
		},
		tests:      []float64{-120.70, 4.22, -47.53, 189.26, -16.34, 196.84, 170.44, 167.73, -89.65, 35.44},
		finalTests: []float64{221.49, 29.18, 247.37},
	},
	{
		algorithm: "D3QN",
		avg: []segment{
			flat(10, -172.37),
			ramp(10, 100, -172.37, -72.21),
			ramp(100, 400, -72.21, 32.93),
			ramp(400, 700, 32.93, 223.24),
			ramp(700, 720, 223.24, 254.19),
			ramp(720, 900, 254.19, 88.24),
			ramp(900, 960, 88.24, 200.73),
			flat(Episodes, 190.12),
		},
		bestStart: -341.07,
		milestones: []milestone{
			{99, 1.25}, {130, 66.48}, {190, 190.99}, {307, 297.61},
			{336, 307.96}, {714, 316.88},
		},
		loss: []segment{
			flat(100, 16.73),
			flat(200, 7.43),
			flat(400, 15.47),
			flat(600, 32.18),
			flat(800, 29.35),
			flat(Episodes, 20.22),
		},
		tests:      []float64{-131.43, 16.05, -13.44, 6.43, 137.86, 180.52, 175.44, 248.67, 41.73, 254.58},
		finalTests: []float64{276.87, 266.91, -92.94},
	},
}
