package theme

// Seasonal theme. Sentiment roles stay at their defaults; decorative roles
// move to a pumpkin and purple palette.
//
//	BOT_THEME=halloween
func init() {
	MustRegister(&Theme{
		Name:       "halloween",
		Primary:    0xEB6123,
		About:      0xEB6123,
		AboutEmpty: 0x6B3FA0,
		ConfigView: 0x6B3FA0,
		ModHelp:    0x6B3FA0,
		Creator:    0x1A1A1A,
	})
}
