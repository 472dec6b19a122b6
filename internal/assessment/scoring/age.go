package scoring

// Age buckets. "11+" is the extended bucket for older children.
const (
	BucketThreeToFour  = "3-4"
	BucketFourToFive   = "4-5"
	BucketFiveToSix    = "5-6"
	BucketFiveToSeven  = "5-7"
	BucketEightToTen   = "8-10"
	BucketElevenPlus   = "11+"
)

// AgeBucketFromMonths maps an age in months onto the fixed bucket breakpoints.
func AgeBucketFromMonths(months int) string {
	switch {
	case months < 48:
		return BucketThreeToFour
	case months < 60:
		return BucketFourToFive
	case months < 72:
		return BucketFiveToSix
	case months < 96:
		return BucketFiveToSeven
	case months < 132:
		return BucketEightToTen
	default:
		return BucketElevenPlus
	}
}

// ValidAgeMonths reports whether the age is inside the assessable range.
func ValidAgeMonths(months int) bool {
	return months >= 36 && months <= 216
}
