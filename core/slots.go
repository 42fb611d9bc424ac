package core

// Tagged fan-in unions for combine. Each upstream's Result is delivered to
// the shared downstream wrapped in a SlotOfN identifying its origin slot.
// Exactly one Result field is populated per instance; Slot records which.

// SlotOf2 is the fan-in union for a two-way combine
type SlotOf2[T1, T2 any] struct {
	Slot    int
	Result1 Result[T1]
	Result2 Result[T2]
}

// FromFirstOf2 wraps a first-upstream Result
func FromFirstOf2[T1, T2 any](r Result[T1]) SlotOf2[T1, T2] {
	return SlotOf2[T1, T2]{Slot: 1, Result1: r}
}

// FromSecondOf2 wraps a second-upstream Result
func FromSecondOf2[T1, T2 any](r Result[T2]) SlotOf2[T1, T2] {
	return SlotOf2[T1, T2]{Slot: 2, Result2: r}
}

// SlotOf3 is the fan-in union for a three-way combine
type SlotOf3[T1, T2, T3 any] struct {
	Slot    int
	Result1 Result[T1]
	Result2 Result[T2]
	Result3 Result[T3]
}

// SlotOf4 is the fan-in union for a four-way combine
type SlotOf4[T1, T2, T3, T4 any] struct {
	Slot    int
	Result1 Result[T1]
	Result2 Result[T2]
	Result3 Result[T3]
	Result4 Result[T4]
}

// SlotOf5 is the fan-in union for a five-way combine
type SlotOf5[T1, T2, T3, T4, T5 any] struct {
	Slot    int
	Result1 Result[T1]
	Result2 Result[T2]
	Result3 Result[T3]
	Result4 Result[T4]
	Result5 Result[T5]
}
