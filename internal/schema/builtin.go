package schema

// Names of the built-in extraction schemas.
const (
	BandsOnlyName = "Bands Only"
	EventsName    = "Events"
)

// Builtin returns the extraction schemas that ship with marquee, in display order.
// A fresh slice is returned on every call.
func Builtin() []Definition {
	event := Object("",
		String("venue", "The name of the venue where the event is happening"),
		String("location", "The name of the city where this is happening"),
		String("date", "The date and time when the event is happening in ISO-8601 format. "+
			"Determine year based on day of the week and date if year is not provided."),
		Boolean("isUpcoming", "Is this date in the future?"),
	)

	return []Definition{
		{
			Name: BandsOnlyName,
			Fields: []Field{
				ArrayOf("bands", String("", "The name of the band")),
			},
		},
		{
			Name: EventsName,
			Fields: []Field{
				ArrayOf("events", event),
			},
		},
	}
}
