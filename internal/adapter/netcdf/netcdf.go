// Package netcdf reads and writes the gridded NetCDF files the pipeline
// consumes and produces. It wraps fhs/go-netcdf behind dense-array values so
// the rest of the code never touches variable handles.
package netcdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ctessum/sparse"
	nc "github.com/fhs/go-netcdf/netcdf"
)

// ReadVar reads one variable from a NetCDF file into a dense array, keeping
// the variable's dimension order. FLOAT, DOUBLE, INT and SHORT variables are
// widened to float64.
func ReadVar(path, name string) (*sparse.DenseArray, error) {
	ds, err := nc.OpenFile(path, nc.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer ds.Close()

	v, err := ds.Var(name)
	if err != nil {
		return nil, fmt.Errorf("%s: variable %q: %w", path, name, err)
	}
	return readVar(v, path, name)
}

func readVar(v nc.Var, path, name string) (*sparse.DenseArray, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("%s: dims of %q: %w", path, name, err)
	}

	shape := make([]int, len(dims))
	n := 1
	for i, d := range dims {
		l, err := d.Len()
		if err != nil {
			return nil, fmt.Errorf("%s: dim length of %q: %w", path, name, err)
		}
		shape[i] = int(l)
		n *= int(l)
	}
	if len(shape) == 0 {
		// Scalars come back as single-element arrays.
		shape = []int{1}
	}

	t, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("%s: type of %q: %w", path, name, err)
	}

	arr := sparse.ZerosDense(shape...)
	switch t {
	case nc.FLOAT:
		buf := make([]float32, n)
		if err := v.ReadFloat32s(buf); err != nil {
			return nil, fmt.Errorf("%s: read %q: %w", path, name, err)
		}
		for i, x := range buf {
			arr.Elements[i] = float64(x)
		}
	case nc.DOUBLE:
		buf := make([]float64, n)
		if err := v.ReadFloat64s(buf); err != nil {
			return nil, fmt.Errorf("%s: read %q: %w", path, name, err)
		}
		copy(arr.Elements, buf)
	case nc.INT:
		buf := make([]int32, n)
		if err := v.ReadInt32s(buf); err != nil {
			return nil, fmt.Errorf("%s: read %q: %w", path, name, err)
		}
		for i, x := range buf {
			arr.Elements[i] = float64(x)
		}
	case nc.SHORT:
		buf := make([]int16, n)
		if err := v.ReadInt16s(buf); err != nil {
			return nil, fmt.Errorf("%s: read %q: %w", path, name, err)
		}
		for i, x := range buf {
			arr.Elements[i] = float64(x)
		}
	default:
		return nil, fmt.Errorf("%s: variable %q has unsupported type %v", path, name, t)
	}
	return arr, nil
}

// WriteVar writes a single dense array as a FLOAT variable, creating the
// file. dimNames must match the array rank; shared conventions are
// ("yc", "xc") for fields and ("time", "yc", "xc") for stacks.
func WriteVar(path, name string, dimNames []string, arr *sparse.DenseArray) error {
	return WriteVars(path, []VarSpec{{Name: name, DimNames: dimNames, Data: arr}})
}

// VarSpec describes one variable for WriteVars. Dimensions with the same
// name are shared between variables and must agree on length.
type VarSpec struct {
	Name     string
	DimNames []string
	Data     *sparse.DenseArray
}

// WriteVars creates a NetCDF file holding the given variables. The write is
// staged through a temp file and renamed into place so readers never observe
// a partial file.
func WriteVars(path string, specs []VarSpec) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := writeVarsFile(tmp, specs); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func writeVarsFile(path string, specs []VarSpec) error {
	ds, err := nc.CreateFile(path, nc.CLOBBER|nc.NETCDF4)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer ds.Close()

	dims := make(map[string]nc.Dim)
	vars := make([]nc.Var, len(specs))

	for i, spec := range specs {
		if len(spec.DimNames) != len(spec.Data.Shape) {
			return fmt.Errorf("%s: variable %q has %d dim names for rank %d",
				path, spec.Name, len(spec.DimNames), len(spec.Data.Shape))
		}
		vdims := make([]nc.Dim, len(spec.DimNames))
		for j, dn := range spec.DimNames {
			d, ok := dims[dn]
			if !ok {
				d, err = ds.AddDim(dn, uint64(spec.Data.Shape[j]))
				if err != nil {
					return fmt.Errorf("%s: add dim %q: %w", path, dn, err)
				}
				dims[dn] = d
			}
			vdims[j] = d
		}
		v, err := ds.AddVar(spec.Name, nc.FLOAT, vdims)
		if err != nil {
			return fmt.Errorf("%s: add var %q: %w", path, spec.Name, err)
		}
		vars[i] = v
	}

	if err := ds.EndDef(); err != nil {
		return fmt.Errorf("%s: end define mode: %w", path, err)
	}

	for i, spec := range specs {
		buf := make([]float32, len(spec.Data.Elements))
		for j, x := range spec.Data.Elements {
			buf[j] = float32(x)
		}
		if err := vars[i].WriteFloat32s(buf); err != nil {
			return fmt.Errorf("%s: write var %q: %w", path, spec.Name, err)
		}
	}
	return nil
}
