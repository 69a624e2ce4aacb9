package cgen

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/tamirms/mphash"
	"github.com/tamirms/mphash/internal/bits"
)

const (
	banner = "/* This file is generated by mphash. */\n"

	// commonPrefix names the generic routines and their helpers.
	commonPrefix = "mphash"

	wordsPerLine = 6
	bytesPerLine = 12
)

// formatter renders one artifact into buf.
type formatter struct {
	buf    bytes.Buffer
	name   string
	static bool
}

func (f *formatter) p(format string, args ...any) {
	fmt.Fprintf(&f.buf, format, args...)
}

// linkage prefixes every externally visible definition and declaration.
func (f *formatter) linkage() string {
	if f.static {
		return "static "
	}
	return ""
}

// declLinkage prefixes object declarations in headers.
func (f *formatter) declLinkage() string {
	if f.static {
		return "static "
	}
	return "extern "
}

func (f *formatter) guardBegin(sym string) {
	g := strings.ToUpper(sym) + "_H"
	f.p("%s#ifndef %s\n#define %s\n\n", banner, g, g)
}

func (f *formatter) guardEnd(sym string) {
	f.p("\n#endif /* %s_H */\n", strings.ToUpper(sym))
}

// fingerprint identifies the parameter set an artifact was emitted from.
func (f *formatter) fingerprint(p *mphash.Params) {
	d := xxhash.New()
	var b [4]byte
	put := func(v uint32) {
		binary.LittleEndian.PutUint32(b[:], v)
		d.Write(b[:])
	}
	put(p.N)
	put(p.Range)
	for _, s := range p.Salts {
		put(s)
	}
	for _, w := range p.G {
		put(w)
	}
	for _, w := range p.Ranking {
		put(w)
	}
	d.Write(p.RankingSmall)
	f.p("/* keys: %d, range: %d, parameters xxh64: %016x */\n", p.N, p.Range, d.Sum64())
}

// types emits the shared type definitions, guarded so that any number of
// artifacts can be included together.
func (f *formatter) types() {
	f.p(`#include <stddef.h>
#include <stdint.h>

#ifndef MPHASH_TYPES_DEFINED
#define MPHASH_TYPES_DEFINED
typedef struct {
  uint32_t range;
  uint32_t salt[3];
  uint32_t n;
  const uint32_t *g;
  const uint32_t *ranking;
  const unsigned char *ranking_small;
} mphash_param_t;

typedef struct {
  const mphash_param_t *mphf;
  const unsigned char *values;
  const uint32_t *value_offsets;
  const unsigned char *keys; /* NULL without key verification */
  const uint32_t *key_offsets;
} mphash_table_t;
#endif

`)
}

// uint32Array emits a static constant array. Empty arrays get one zero
// element.
func (f *formatter) uint32Array(sym string, vals []uint32) {
	if len(vals) == 0 {
		vals = []uint32{0}
	}
	f.p("static const uint32_t %s[%d] = {\n", sym, len(vals))
	for i, v := range vals {
		if i%wordsPerLine == 0 {
			f.p("  ")
		}
		f.p("0x%08x,", v)
		if i%wordsPerLine == wordsPerLine-1 || i == len(vals)-1 {
			f.p("\n")
		} else {
			f.p(" ")
		}
	}
	f.p("};\n")
}

// byteArray emits a static constant byte array. With chars, printable
// bytes are written as character constants.
func (f *formatter) byteArray(sym string, vals []byte, chars bool) {
	if len(vals) == 0 {
		vals = []byte{0}
	}
	f.p("static const unsigned char %s[%d] = {\n", sym, len(vals))
	for i, v := range vals {
		if i%bytesPerLine == 0 {
			f.p("  ")
		}
		if chars && v >= 0x20 && v < 0x7f {
			f.p("%s,", QuoteChar(v))
		} else {
			f.p("0x%02x,", v)
		}
		if i%bytesPerLine == bytesPerLine-1 || i == len(vals)-1 {
			f.p("\n")
		} else {
			f.p(" ")
		}
	}
	f.p("};\n")
}

// paramArrays emits g, ranking and ranking_small as prefix_g and so on.
func (f *formatter) paramArrays(prefix string, p *mphash.Params) {
	f.uint32Array(prefix+"_g", p.G)
	f.uint32Array(prefix+"_ranking", p.Ranking)
	f.byteArray(prefix+"_ranking_small", p.RankingSmall, false)
	f.p("\n")
}

// paramInit returns an mphash_param_t initializer referring to the arrays
// emitted by paramArrays.
func paramInit(prefix string, p *mphash.Params) string {
	return fmt.Sprintf("{ %du, { 0x%08xu, 0x%08xu, 0x%08xu }, %du, %s_g, %s_ranking, %s_ranking_small }",
		p.Range, p.Salts[0], p.Salts[1], p.Salts[2], p.N, prefix, prefix, prefix)
}

// decodeRefs names the expressions a decode body reads its parameters from.
type decodeRefs struct {
	rng          string
	salt         [3]string
	g            string
	ranking      string
	rankingSmall string
}

func literalRefs(prefix string, p *mphash.Params) decodeRefs {
	return decodeRefs{
		rng: fmt.Sprintf("%du", p.Range),
		salt: [3]string{
			fmt.Sprintf("0x%08xu", p.Salts[0]),
			fmt.Sprintf("0x%08xu", p.Salts[1]),
			fmt.Sprintf("0x%08xu", p.Salts[2]),
		},
		g:            prefix + "_g",
		ranking:      prefix + "_ranking",
		rankingSmall: prefix + "_ranking_small",
	}
}

func pointerRefs(ptr string) decodeRefs {
	return decodeRefs{
		rng:          ptr + "->range",
		salt:         [3]string{ptr + "->salt[0]", ptr + "->salt[1]", ptr + "->salt[2]"},
		g:            ptr + "->g",
		ranking:      ptr + "->ranking",
		rankingSmall: ptr + "->ranking_small",
	}
}

// helpers emits the mixing hash and popcount as static functions named
// prefix_hash32 and prefix_popcount.
func (f *formatter) helpers(prefix string) {
	f.p(`static uint32_t %[1]s_hash32(const unsigned char *p, size_t length, uint32_t seed)
{
  const uint32_t c1 = 0xcc9e2d51u, c2 = 0x1b873593u;
  uint32_t h = seed, k;
  size_t i, nblocks = length / 4;
  for (i = 0; i < nblocks; i++, p += 4) {
    k = (uint32_t)p[0] | (uint32_t)p[1] << 8 | (uint32_t)p[2] << 16 | (uint32_t)p[3] << 24;
    k *= c1;
    k = (k << 15) | (k >> 17);
    k *= c2;
    h ^= k;
    h = (h << 13) | (h >> 19);
    h = h * 5u + 0xe6546b64u;
  }
  k = 0;
  switch (length & 3) {
  case 3:
    k ^= (uint32_t)p[2] << 16;
    /* fall through */
  case 2:
    k ^= (uint32_t)p[1] << 8;
    /* fall through */
  case 1:
    k ^= (uint32_t)p[0];
    k *= c1;
    k = (k << 15) | (k >> 17);
    k *= c2;
    h ^= k;
  }
  h ^= (uint32_t)length;
  h ^= h >> 16;
  h *= 0x85ebca6bu;
  h ^= h >> 13;
  h *= 0xc2b2ae35u;
  h ^= h >> 16;
  return h;
}

static unsigned %[1]s_popcount(uint32_t w)
{
  w = w - ((w >> 1) & 0x55555555u);
  w = (w & 0x33333333u) + ((w >> 2) & 0x33333333u);
  w = (w + (w >> 4)) & 0x0f0f0f0fu;
  return (unsigned)((w * 0x01010101u) >> 24);
}

`, prefix)
}

// decodeBody emits the statements of a decode function taking (key,
// length) and returning the code.
func (f *formatter) decodeBody(prefix string, r decodeRefs) {
	f.p(`  const unsigned char *p = (const unsigned char *)key;
  uint32_t h[3], ph, mph, a, b, c, u, i;
  h[0] = %[1]s_hash32(p, length, %[3]s) %% %[2]s;
  h[1] = %[1]s_hash32(p, length, %[4]s) %% %[2]s + %[2]s;
  h[2] = %[1]s_hash32(p, length, %[5]s) %% %[2]s + 2 * %[2]s;
  i = ((%[6]s[h[0] / %[9]d] >> (2 * (h[0] %% %[9]d))) & 3) +
      ((%[6]s[h[1] / %[9]d] >> (2 * (h[1] %% %[9]d))) & 3) +
      ((%[6]s[h[2] / %[9]d] >> (2 * (h[2] %% %[9]d))) & 3);
  ph = h[i %% 3];
  a = ph / %[10]d;
  b = ph %% %[10]d;
  c = b %% %[11]d;
  b = b / %[11]d;
  mph = 0;
  if (a != 0)
    mph = %[7]s[a - 1];
  if (b != 0)
    mph += %[8]s[a * %[12]d + b - 1];
  if (c != 0) {
    u = %[6]s[ph / %[9]d] & ((1u << (2 * c)) - 1);
    mph += c - %[1]s_popcount(u & 0x55555555u & (u >> 1));
  }
  return mph;
`, prefix, r.rng, r.salt[0], r.salt[1], r.salt[2], r.g, r.ranking, r.rankingSmall,
		bits.CodesPerWord, mphash.RankBlockSize, mphash.RankSmallBlockSize, mphash.RankSmallPerBlock)
}

// lookupRefs names what a table lookup body reads.
type lookupRefs struct {
	code         string // expression computing the code of (key, length)
	n            string
	values       string
	valueOffsets string
	keys         string // empty without key verification
	keyOffsets   string
}

// lookupBody emits the statements of a lookup function taking (key,
// length, value_length).
func (f *formatter) lookupBody(r lookupRefs) {
	f.p("  unsigned long code = %s;\n", r.code)
	f.p("  if (code >= %s)\n    return NULL;\n", r.n)
	if r.keys != "" {
		f.p(`  if (%[1]s != NULL) {
    uint32_t kb = %[2]s[code], ke = %[2]s[code + 1];
    if (ke - kb != length || memcmp(%[1]s + kb, key, length) != 0)
      return NULL;
  }
`, r.keys, r.keyOffsets)
	}
	f.p(`  if (value_length != NULL)
    *value_length = %[2]s[code + 1] - %[2]s[code];
  return %[1]s + %[2]s[code];
`, r.values, r.valueOffsets)
}

func (f *formatter) commonHeader() {
	f.guardBegin(commonPrefix)
	f.types()
	f.p("%sunsigned long mphash_generic(const void *key, size_t length, const mphash_param_t *param);\n", f.linkage())
	f.p("%sconst void *mphash_table_lookup(const void *key, size_t length, const mphash_table_t *table, size_t *value_length);\n", f.linkage())
	f.guardEnd(commonPrefix)
}

func (f *formatter) commonSource() {
	f.p(banner)
	f.types()
	f.p("#include <string.h>\n\n")
	f.helpers(commonPrefix)
	f.p("%sunsigned long mphash_generic(const void *key, size_t length, const mphash_param_t *param)\n{\n", f.linkage())
	f.decodeBody(commonPrefix, pointerRefs("param"))
	f.p("}\n\n")
	f.p("%sconst void *mphash_table_lookup(const void *key, size_t length, const mphash_table_t *table, size_t *value_length)\n{\n", f.linkage())
	f.lookupBody(lookupRefs{
		code:         "mphash_generic(key, length, table->mphf)",
		n:            "table->mphf->n",
		values:       "table->values",
		valueOffsets: "table->value_offsets",
		keys:         "table->keys",
		keyOffsets:   "table->key_offsets",
	})
	f.p("}\n")
}

func (f *formatter) functionHeader() {
	f.guardBegin(f.name)
	f.p("#include <stddef.h>\n\n")
	f.p("%sunsigned long %s(const void *key, size_t length);\n", f.linkage(), f.name)
	f.guardEnd(f.name)
}

func (f *formatter) functionSource(p *mphash.Params) {
	f.p(banner)
	f.fingerprint(p)
	f.p("\n#include <stddef.h>\n#include <stdint.h>\n\n")
	f.paramArrays(f.name, p)
	f.helpers(f.name)
	f.p("%sunsigned long %s(const void *key, size_t length)\n{\n", f.linkage(), f.name)
	f.decodeBody(f.name, literalRefs(f.name, p))
	f.p("}\n")
}

func (f *formatter) functionDataHeader() {
	f.guardBegin(f.name)
	f.types()
	f.p("%sconst mphash_param_t %s_param;\n", f.declLinkage(), f.name)
	f.guardEnd(f.name)
}

func (f *formatter) functionData(p *mphash.Params) {
	f.p(banner)
	f.fingerprint(p)
	f.p("\n")
	f.types()
	f.paramArrays(f.name, p)
	f.p("%sconst mphash_param_t %s_param = %s;\n", f.linkage(), f.name, paramInit(f.name, p))
}

func (f *formatter) tableHeader() {
	f.guardBegin(f.name)
	f.p("#include <stddef.h>\n\n")
	f.p("%sconst void *%s(const void *key, size_t length, size_t *value_length);\n", f.linkage(), f.name)
	f.guardEnd(f.name)
}

// tableArrays emits the table's value and key arrays.
func (f *formatter) tableArrays(t *mphash.TableData) {
	f.byteArray(f.name+"_values", t.Values, true)
	f.uint32Array(f.name+"_value_offsets", t.ValueOffsets)
	if t.KeyOffsets != nil {
		f.byteArray(f.name+"_keys", t.Keys, true)
		f.uint32Array(f.name+"_key_offsets", t.KeyOffsets)
	}
	f.p("\n")
}

func (f *formatter) tableSource(t *mphash.TableData) {
	p := &t.MPHF
	f.p(banner)
	f.fingerprint(p)
	f.p("\n#include <stddef.h>\n#include <stdint.h>\n#include <string.h>\n\n")
	f.paramArrays(f.name, p)
	f.tableArrays(t)
	f.helpers(f.name)

	f.p("static unsigned long %s_code(const void *key, size_t length)\n{\n", f.name)
	f.decodeBody(f.name, literalRefs(f.name, p))
	f.p("}\n\n")

	r := lookupRefs{
		code:         f.name + "_code(key, length)",
		n:            fmt.Sprintf("%du", p.N),
		values:       f.name + "_values",
		valueOffsets: f.name + "_value_offsets",
	}
	if t.KeyOffsets != nil {
		r.keys = f.name + "_keys"
		r.keyOffsets = f.name + "_key_offsets"
	}
	f.p("%sconst void *%s(const void *key, size_t length, size_t *value_length)\n{\n", f.linkage(), f.name)
	f.lookupBody(r)
	f.p("}\n")
}

func (f *formatter) tableDataHeader() {
	f.guardBegin(f.name)
	f.types()
	f.p("%sconst mphash_table_t %s_param;\n", f.declLinkage(), f.name)
	f.guardEnd(f.name)
}

func (f *formatter) tableData(t *mphash.TableData) {
	p := &t.MPHF
	f.p(banner)
	f.fingerprint(p)
	f.p("\n")
	f.types()
	f.paramArrays(f.name, p)
	f.tableArrays(t)
	f.p("static const mphash_param_t %s_mphf = %s;\n", f.name, paramInit(f.name, p))

	keys, keyOffsets := "NULL", "NULL"
	if t.KeyOffsets != nil {
		keys, keyOffsets = f.name+"_keys", f.name+"_key_offsets"
	}
	f.p("%sconst mphash_table_t %s_param = { &%s_mphf, %s_values, %s_value_offsets, %s, %s };\n",
		f.linkage(), f.name, f.name, f.name, f.name, keys, keyOffsets)
}

// program emits a self-contained function followed by a main that prints
// every key with its code.
func (f *formatter) program(p *mphash.Params, keys [][]byte) {
	f.static = true
	f.functionSource(p)

	f.p("\n#include <stdio.h>\n\n")
	f.p("static const char *const %s_keys[%d] = {\n", f.name, len(keys))
	for _, k := range keys {
		f.p("  %s,\n", QuoteString(k))
	}
	f.p("};\n")
	lengths := make([]uint32, len(keys))
	for i, k := range keys {
		lengths[i] = uint32(len(k))
	}
	f.uint32Array(f.name+"_key_lengths", lengths)

	f.p(`
int main(void)
{
  size_t i;
  for (i = 0; i < %[2]d; i++) {
    printf("%%lu \"", %[1]s(%[1]s_keys[i], %[1]s_key_lengths[i]));
    fwrite(%[1]s_keys[i], 1, %[1]s_key_lengths[i], stdout);
    fputs("\"\n", stdout);
  }
  return 0;
}
`, f.name, len(keys))
}
