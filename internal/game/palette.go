package game

// palette is the fixed racer color rotation. Assignment is deterministic
// given join order: the Nth racer to join gets palette[N mod len(palette)],
// so colors repeat only once the roster outgrows the palette.
var palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A",
	"#98D8C8", "#F7DC6F", "#BB8FCE", "#85C1E2",
	"#F8B739", "#52B788", "#E63946", "#457B9D",
	"#FF8C42", "#6A4C93", "#1982C4", "#8AC926",
	"#FF595E", "#FFCA3A", "#8AC926", "#1982C4",
	"#6A4C93", "#C9ADA7", "#9A8C98", "#4A4E69",
}

func colorFor(index int) string {
	return palette[index%len(palette)]
}
