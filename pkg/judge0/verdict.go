package judge0

// Judge0 status identifiers as returned by the execution service.
const (
	StatusInQueue          = 1
	StatusProcessing       = 2
	StatusAccepted         = 3
	StatusWrongAnswer      = 4
	StatusTimeLimit        = 5
	StatusCompilationError = 6
	StatusRuntimeErrorMin  = 7
	StatusRuntimeErrorMax  = 12
	StatusInternalError    = 13
)

// Verdict is the categorical outcome of running a submission or a single test case.
type Verdict string

// Verdict values.
const (
	VerdictAccepted         Verdict = "ACCEPTED"
	VerdictWrongAnswer      Verdict = "WRONG_ANSWER"
	VerdictTimeLimit        Verdict = "TIME_LIMIT_EXCEEDED"
	VerdictCompilationError Verdict = "COMPILATION_ERROR"
	VerdictRuntimeError     Verdict = "RUNTIME_ERROR"
	VerdictInternalError    Verdict = "INTERNAL_ERROR"
	VerdictJudgeError       Verdict = "JUDGE_ERROR"
)

// StatusToVerdict maps an execution service status code to a domain verdict.
// Unknown codes degrade to VerdictJudgeError so the pipeline never blocks on
// an unrecognised status.
func StatusToVerdict(code int) Verdict {
	switch {
	case code == StatusAccepted:
		return VerdictAccepted
	case code == StatusWrongAnswer:
		return VerdictWrongAnswer
	case code == StatusTimeLimit:
		return VerdictTimeLimit
	case code == StatusCompilationError:
		return VerdictCompilationError
	case code >= StatusRuntimeErrorMin && code <= StatusRuntimeErrorMax:
		return VerdictRuntimeError
	case code == StatusInternalError:
		return VerdictInternalError
	default:
		return VerdictJudgeError
	}
}

// IsDone reports whether a status code is terminal, i.e. the execution has
// left the queued/processing range.
func IsDone(code int) bool {
	return code != StatusInQueue && code != StatusProcessing
}
