// Package atproto turns the modem's raw byte stream into classified line
// records. It plays the role the teacher's at package (Splitter/Classify)
// plays for i4energy's SMS gateway, generalized to the AT response tags this
// firmware's dialogue engine needs to arbitrate.
package atproto

import "strings"

// MaxLineLen is the size of the source's max_str_l fixed character array.
// A reassembled line keeps at most MaxLineLen-1 bytes (the array's last
// byte held the NUL terminator); longer lines are truncated.
const MaxLineLen = 200

// Tag identifies the kind of line the classifier produced.
type Tag int

const (
	TagIGNORE  Tag = iota // empty line
	TagOK                 // "OK"
	TagERROR              // "ERROR"
	TagCPSI               // "+CPSI..."
	TagCREG               // "+CREG..."
	TagCPMS               // "+CPMS..."
	TagCSQ                // "+CSQ..."
	TagCMGD               // "+CMGD..."
	TagCMGS               // "+CMGS..."
	TagCMTI               // "+CMTI..."
	TagCMGR               // "+CMGR..."
	TagCLCC               // "+CLCC..."
	TagUNKNOWN            // other "+..." line
	TagPROMPT             // ">" SMS data-entry cue
	TagDATA               // anything else: the modem's out-of-band payload
)

// NumMsgTags is the number of tags the arbiter tracks pending/deadline state
// for: every tag up to and including PROMPT. DATA, the last tag, is not an
// exchange in its own right; the IGNORE slot is never awaited. PROMPT is
// included because the CMGS send protocol arbitrates on
// it in place of a fixed delay (spec.md §9 Design Notes).
const NumMsgTags = int(TagPROMPT) + 1

// String names a Tag for logging.
func (t Tag) String() string {
	switch t {
	case TagIGNORE:
		return "IGNORE"
	case TagOK:
		return "OK"
	case TagERROR:
		return "ERROR"
	case TagCPSI:
		return "+CPSI"
	case TagCREG:
		return "+CREG"
	case TagCPMS:
		return "+CPMS"
	case TagCSQ:
		return "+CSQ"
	case TagCMGD:
		return "+CMGD"
	case TagCMGS:
		return "+CMGS"
	case TagCMTI:
		return "+CMTI"
	case TagCMGR:
		return "+CMGR"
	case TagCLCC:
		return "+CLCC"
	case TagUNKNOWN:
		return "UNKNOWN"
	case TagPROMPT:
		return "PROMPT"
	case TagDATA:
		return "DATA"
	}
	return "?"
}

var prefixTags = []struct {
	prefix string
	tag    Tag
}{
	{"+CPSI", TagCPSI},
	{"+CREG", TagCREG},
	{"+CPMS", TagCPMS},
	{"+CSQ", TagCSQ},
	{"+CMGD", TagCMGD},
	{"+CMGS", TagCMGS},
	{"+CMTI", TagCMTI},
	{"+CMGR", TagCMGR},
	{"+CLCC", TagCLCC},
}

// Classify maps a reassembled line to its tag and payload, applying the
// rules of spec.md §4.2 in order.
func Classify(line string) (Tag, string) {
	switch {
	case strings.HasPrefix(line, "OK"):
		return TagOK, line
	case strings.HasPrefix(line, "ERROR"):
		return TagERROR, line
	}

	for _, p := range prefixTags {
		if strings.HasPrefix(line, p.prefix) {
			return p.tag, line
		}
	}

	switch {
	case strings.HasPrefix(line, ">"):
		return TagPROMPT, line
	case line == "":
		return TagIGNORE, line
	case strings.HasPrefix(line, "+"):
		return TagUNKNOWN, line
	default:
		return TagDATA, line
	}
}
