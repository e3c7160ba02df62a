// Package draw implements the name pool and the draw engine behind a dice
// shake draw.
//
// A Pool holds the names still eligible to be drawn. Draw picks winners
// uniformly without replacement, and Redraw replaces a single winner with a
// fresh name. Randomness comes from an injected Source so that tests can use
// a seeded generator:
//
//	p := draw.NewPool(draw.Seeded(42))
//	if err := p.Load("Alice, Bob\nCarol"); err != nil {
//		return err
//	}
//	winners, err := p.Draw(2)
//
// Session wraps a Pool with the lifecycle of one draw session
// (idle, validating, drawing, results shown) and the busy flag that keeps a
// second draw from starting while one is in flight.
package draw
