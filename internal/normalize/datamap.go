package normalize

// The register namespace is shared by both backend generations:
// A_<n> analog values, D_<n> digital flags, I_<n> integer counters.
// The tables below give canonical names to the registers the client
// interprets; everything else lands in the Unmapped bucket.

// infoKeys names the wire fields of one backend generation's device info
// payload. The legacy backend uses php-era field names and hides the
// installation coordinates behind two "password" slots; the current backend
// uses plain snake_case names.
type infoKeys struct {
	name, surname       string
	country, language   string
	place               string
	latitude, longitude string
	pumpType            string
	regulation          string
	expansion, output   string
	reservation         string
	notes               string
}

var v1InfoKeys = infoKeys{
	name:        "givenname",
	surname:     "surname",
	country:     "localization",
	language:    "lang",
	place:       "city",
	latitude:    "password9",
	longitude:   "password10",
	pumpType:    "type",
	regulation:  "regulation",
	expansion:   "exp",
	output:      "output",
	reservation: "reservation",
	notes:       "notes",
}

var v2InfoKeys = infoKeys{
	name:        "given_name",
	surname:     "surname",
	country:     "country",
	language:    "language",
	place:       "city",
	latitude:    "latitude",
	longitude:   "longitude",
	pumpType:    "type",
	regulation:  "regulation",
	expansion:   "exp",
	output:      "output",
	reservation: "reservation",
	notes:       "notes",
}

// readPoint is one entry of the read map: a canonical data point key and
// the register serving it. The point's kind follows the register prefix.
type readPoint struct {
	key      string
	register string
}

var readMap = []readPoint{
	{"on", "D_3"},
	{"cooling_mode", "D_4"},
	{"compressor_running", "D_5"},
	{"compressor2_running", "D_32"},
	{"aux_heater_1_running", "D_6"},
	{"aux_heater_2_running", "D_7"},
	{"fan_running", "D_8"},
	{"circulation_pump_running", "D_10"},
	{"low_tariff_active", "D_15"},
	{"alarm_active", "D_20"},
	{"defrost_active", "D_29"},
	{"dhw_heating", "D_66"},
	{"dhw_enabled", "D_275"},

	{"actual_temp", "A_1"},
	{"outside_temp", "A_3"},
	{"return_temp", "A_5"},
	{"dhw_current_temp", "A_126"},
	{"dhw_required_temp", "A_129"},
	{"requested_temp", "A_500"},

	{"operating_mode", "I_51"},
	{"compressor_run_time", "I_11"},
	{"compressor_start_counter", "I_12"},
	{"pump_run_time", "I_13"},
	{"aux1_run_time", "I_14"},
	{"aux2_run_time", "I_15"},
}

// padCircuit describes where one circuit spells its name and signals
// enablement. The controller supports six circuits, pada through padf;
// each spells its display name through six character-index registers.
type padCircuit struct {
	id     string
	name   [6]string
	enable string
}

var padMap = []padCircuit{
	{"pada", [6]string{"I_211", "I_212", "I_213", "I_214", "I_215", "I_216"}, "D_212"},
	{"padb", [6]string{"I_221", "I_222", "I_223", "I_224", "I_225", "I_226"}, "D_213"},
	{"padc", [6]string{"I_231", "I_232", "I_233", "I_234", "I_235", "I_236"}, "D_214"},
	{"padd", [6]string{"I_241", "I_242", "I_243", "I_244", "I_245", "I_246"}, "D_215"},
	{"pade", [6]string{"I_251", "I_252", "I_253", "I_254", "I_255", "I_256"}, "D_216"},
	{"padf", [6]string{"I_261", "I_262", "I_263", "I_264", "I_265", "I_266"}, "D_217"},
}

// charMap decodes the character-index encoding of the pad name registers.
// Index 0 is the empty padding slot; a name spelled entirely from empty
// slots marks the circuit as not configured.
var charMap = []string{
	"",
	"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L", "M",
	"N", "O", "P", "Q", "R", "S", "T", "U", "V", "W", "X", "Y", "Z",
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"-", ".", " ",
}
