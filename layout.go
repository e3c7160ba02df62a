package main

// Layout carries the sizing hints the page applies to the winner cards.
type Layout struct {
	Columns   string `json:"columns"`
	FontSize  string `json:"font_size"`
	Padding   string `json:"padding"`
	HighCount bool   `json:"high_count"`
}

func layoutFor(count int) Layout {
	switch {
	case count <= 1:
		return Layout{Columns: "1fr", FontSize: "clamp(2.5rem, 10vw, 5rem)", Padding: "3rem 5rem"}
	case count <= 4:
		return Layout{Columns: "repeat(2, 1fr)", FontSize: "clamp(1.5rem, 5vw, 3rem)", Padding: "2rem"}
	case count <= 9:
		return Layout{Columns: "repeat(3, 1fr)", FontSize: "clamp(1.2rem, 3vw, 2rem)", Padding: "1.5rem"}
	case count <= 12:
		return Layout{Columns: "repeat(4, 1fr)", FontSize: "clamp(1rem, 2.5vw, 1.5rem)", Padding: "1rem 1.5rem"}
	case count <= 20:
		return Layout{Columns: "repeat(5, 1fr)", FontSize: "clamp(0.8rem, 2vw, 1.2rem)", Padding: "0.8rem 1rem", HighCount: true}
	default:
		return Layout{Columns: "repeat(auto-fit, minmax(130px, 1fr))", FontSize: "clamp(0.7rem, 1.5vw, 1rem)", Padding: "0.6rem 0.8rem", HighCount: true}
	}
}
