package types_test

import (
	"strings"
	"testing"

	types "github.com/okian/commskill/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestUpload(t *testing.T) {
	Convey("Given uploads", t, func() {
		Convey("Then a missing body or zero size is empty", func() {
			So(types.Upload{}.Empty(), ShouldBeTrue)
			So(types.Upload{Body: strings.NewReader(""), Size: 0}.Empty(), ShouldBeTrue)
		})

		Convey("Then an unknown size with a body is not empty", func() {
			So(types.Upload{Body: strings.NewReader("x"), Size: -1}.Empty(), ShouldBeFalse)
			So(types.Upload{Body: strings.NewReader("x"), Size: 1}.Empty(), ShouldBeFalse)
		})
	})
}
