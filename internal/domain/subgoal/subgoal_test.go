package subgoal

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func loopDefinition() Definition {
	return Definition{
		CodeLines: []string{"for i in range(n):", "    total += i"},
		Highlights: []Highlight{
			{Subgoal: 0, Line: 0, ColumnStart: 0, Text: "for i in range(n):"},
			{Subgoal: 1, Line: 1, ColumnStart: 4, Text: "total += i"},
		},
	}
}

func TestSpans(t *testing.T) {
	Convey("Given highlights on two lines", t, func() {
		d := loopDefinition()

		Convey("Then offsets count earlier lines plus their newlines", func() {
			So(d.Spans(0), ShouldResemble, []Span{{Subgoal: 0, Start: 0, End: 18}})
			So(d.Spans(1), ShouldResemble, []Span{{Subgoal: 1, Start: 23, End: 33}})
			So(d.Code()[23:33], ShouldEqual, "total += i")
		})

		Convey("Then ids are sorted and distinct", func() {
			So(d.IDs(), ShouldResemble, []int{0, 1})
		})
	})
}

func TestRelevant(t *testing.T) {
	Convey("Given the loop reference code", t, func() {
		d := loopDefinition()
		tokens := []string{"for", "total", "i", "range ( n"}

		Convey("Then for is relevant to subgoal 0 and total is not", func() {
			mask := Relevant(d, tokens, 0)
			So(mask[0], ShouldBeTrue)
			So(mask[1], ShouldBeFalse)
		})

		Convey("Then a token occurring in both lines is relevant to both", func() {
			So(Relevant(d, tokens, 0)[2], ShouldBeTrue)
			So(Relevant(d, tokens, 1)[2], ShouldBeTrue)
		})

		Convey("Then n-grams not appearing literally are never relevant", func() {
			So(Relevant(d, tokens, 0)[3], ShouldBeFalse)
		})

		Convey("Then an unknown subgoal yields an all-false mask", func() {
			So(Relevant(d, tokens, 7), ShouldResemble, []bool{false, false, false, false})
		})

		Convey("Then Masks covers every subgoal", func() {
			masks := Masks(d, tokens)
			So(len(masks), ShouldEqual, 2)
			So(masks[1], ShouldResemble, []bool{false, true, true, false})
		})
	})

	Convey("Given spans that only touch a token at its edge", t, func() {
		d := Definition{
			CodeLines:  []string{"abcdef"},
			Highlights: []Highlight{{Subgoal: 0, Line: 0, ColumnStart: 3, Text: "def"}},
		}

		Convey("Then the half-open test excludes adjacency", func() {
			So(Relevant(d, []string{"abc", "cd", "f"}, 0), ShouldResemble, []bool{false, true, true})
		})
	})

	Convey("Given overlapping occurrences", t, func() {
		So(occurrences("aaaa", "aa"), ShouldResemble, []int{0, 1, 2})
		So(occurrences("héllo héllo", "llo"), ShouldResemble, []int{2, 8})
	})

	Convey("Given a definition without highlights", t, func() {
		So(Masks(Definition{CodeLines: []string{"x"}}, []string{"x"}), ShouldBeNil)
	})
}
