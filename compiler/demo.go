package compiler

import "github.com/slowlang/dynir/compiler/ir"

// DemoUnit builds a small program:
//
//	def foo
//	  r = each { return 5 }
//	  r
//	end
//
//	def bar(x)
//	  r = <foo's block>
//	  x
//	end
//
// The block does a non-local return from foo.
// Inlining it into foo turns it into a plain return,
// inlining it into bar turns it into a copy to the call result.
func DemoUnit() *ir.Unit {
	u := ir.NewUnit("demo")
	top := u.NewScript("main")

	foo := u.NewMethod("foo", top.ID)
	blk := u.NewClosure(foo.ID)
	bar := u.NewMethod("bar", top.ID)

	ir.NewBuilder(u, blk).NonlocalReturn(ir.Fixnum(5))

	{
		b := ir.NewBuilder(u, foo)
		r := b.Temp()
		b.Call(r, blk.ID)
		b.Return(r)
	}

	{
		b := ir.NewBuilder(u, bar)
		x := b.Param("x")
		r := b.Temp()
		b.Call(r, blk.ID)
		b.Return(x)
	}

	{
		b := ir.NewBuilder(u, top)
		r := b.Temp()
		b.Call(r, foo.ID)
		b.Call(nil, bar.ID, r)
		b.Return(ir.Nil{})
	}

	return u
}
