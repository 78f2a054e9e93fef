package featureflag

type Flag string

const (
	FlagDisableExactCast Flag = "DISABLE_EXACT_CAST"
	FlagDisablePicking   Flag = "DISABLE_PICKING"
	FlagDisableStreaming Flag = "DISABLE_STREAMING"
)

func (f Flag) String() string {
	return string(f)
}
