package testutils

// Fixture STEP files. Lengths are in millimetres unless stated otherwise.

// stepHeader opens an AP214 exchange structure.
const stepHeader = `ISO-10303-21;
HEADER;
/* generated for tests */
FILE_DESCRIPTION(('stepmesh fixture'),'2;1');
FILE_NAME('fixture.step','2024-01-01T00:00:00',('tester'),('stepmesh'),'stepmesh','stepmesh','');
FILE_SCHEMA(('AUTOMOTIVE_DESIGN { 1 0 10303 214 1 1 1 1 }'));
ENDSEC;
DATA;
`

const stepFooter = `ENDSEC;
END-ISO-10303-21;
`

// mmContext is a representation context in millimetres and radians (#11..#14).
const mmContext = `#11=(GEOMETRIC_REPRESENTATION_CONTEXT(3) GLOBAL_UNIT_ASSIGNED_CONTEXT((#12,#13,#14)) REPRESENTATION_CONTEXT('',''));
#12=(LENGTH_UNIT() NAMED_UNIT(*) SI_UNIT(.MILLI.,.METRE.));
#13=(NAMED_UNIT(*) PLANE_ANGLE_UNIT() SI_UNIT($,.RADIAN.));
#14=(NAMED_UNIT(*) SI_UNIT($,.STERADIAN.) SOLID_ANGLE_UNIT());
`

// axes is the world placement #10 and its point and directions (#15..#17).
const axes = `#10=AXIS2_PLACEMENT_3D('',#15,#16,#17);
#15=CARTESIAN_POINT('',(0.,0.,0.));
#16=DIRECTION('',(0.,0.,1.));
#17=DIRECTION('',(1.,0.,0.));
`

// cubeBrep is a 10 unit faceted cube #20 with its corner at the origin.
const cubeBrep = `#20=FACETED_BREP('cube',#21);
#21=CLOSED_SHELL('',(#30,#31,#32,#33,#34,#35));
#30=FACE('',(#50));
#31=FACE('',(#51));
#32=FACE('',(#52));
#33=FACE('',(#53));
#34=FACE('',(#54));
#35=FACE('',(#55));
#40=CARTESIAN_POINT('',(0.,0.,0.));
#41=CARTESIAN_POINT('',(10.,0.,0.));
#42=CARTESIAN_POINT('',(10.,10.,0.));
#43=CARTESIAN_POINT('',(0.,10.,0.));
#44=CARTESIAN_POINT('',(0.,0.,10.));
#45=CARTESIAN_POINT('',(10.,0.,10.));
#46=CARTESIAN_POINT('',(10.,10.,10.));
#47=CARTESIAN_POINT('',(0.,10.,10.));
#50=FACE_OUTER_BOUND('',#60,.T.);
#51=FACE_OUTER_BOUND('',#61,.T.);
#52=FACE_OUTER_BOUND('',#62,.T.);
#53=FACE_OUTER_BOUND('',#63,.T.);
#54=FACE_OUTER_BOUND('',#64,.T.);
#55=FACE_OUTER_BOUND('',#65,.T.);
#60=POLY_LOOP('bottom',(#40,#43,#42,#41));
#61=POLY_LOOP('top',(#44,#45,#46,#47));
#62=POLY_LOOP('front',(#40,#41,#45,#44));
#63=POLY_LOOP('back',(#42,#43,#47,#46));
#64=POLY_LOOP('left',(#40,#44,#47,#43));
#65=POLY_LOOP('right',(#41,#42,#46,#45));
`

// cubeProduct is the part "Cube" (#101..#110) whose representation #109 holds the cube.
const cubeProduct = `#1=APPLICATION_CONTEXT('automotive design');
#2=PRODUCT_CONTEXT('',#1,'mechanical');
#6=PRODUCT_DEFINITION_CONTEXT('part definition',#1,'design');
#101=PRODUCT('cube','Cube','',(#2));
#104=PRODUCT_DEFINITION_FORMATION('','',#101);
#105=PRODUCT_DEFINITION('design','',#104,#6);
#107=PRODUCT_DEFINITION_SHAPE('','',#105);
#108=SHAPE_DEFINITION_REPRESENTATION(#107,#109);
#109=SHAPE_REPRESENTATION('Cube',(#110,#20),#11);
#110=AXIS2_PLACEMENT_3D('',#15,#16,#17);
`

// FacetedCube is a single part "Cube": a 10 mm faceted cube.
const FacetedCube = stepHeader + mmContext + axes + cubeBrep + cubeProduct + stepFooter

// InchCube is the faceted cube written in inches, so it measures 254 mm.
const InchCube = stepHeader + `#11=(GEOMETRIC_REPRESENTATION_CONTEXT(3) GLOBAL_UNIT_ASSIGNED_CONTEXT((#12,#13,#14)) REPRESENTATION_CONTEXT('',''));
#12=(CONVERSION_BASED_UNIT('INCH',#18) LENGTH_UNIT() NAMED_UNIT(#19));
#13=(NAMED_UNIT(*) PLANE_ANGLE_UNIT() SI_UNIT($,.RADIAN.));
#14=(NAMED_UNIT(*) SI_UNIT($,.STERADIAN.) SOLID_ANGLE_UNIT());
#18=LENGTH_MEASURE_WITH_UNIT(LENGTH_MEASURE(25.4),#9);
#19=DIMENSIONAL_EXPONENTS(1.,0.,0.,0.,0.,0.,0.);
#9=(LENGTH_UNIT() NAMED_UNIT(*) SI_UNIT(.MILLI.,.METRE.));
` + axes + cubeBrep + cubeProduct + stepFooter

// Assembly is a root product "Assembly" holding two occurrences of "Cube": the first at
// the origin, the second moved by (20,0,0) and turned 90 degrees about Z, so that it
// spans x in [10,20] and y in [0,10].
const Assembly = stepHeader + mmContext + axes + cubeBrep + cubeProduct + `#201=PRODUCT('asm','Assembly','',(#2));
#204=PRODUCT_DEFINITION_FORMATION('','',#201);
#205=PRODUCT_DEFINITION('design','',#204,#6);
#207=PRODUCT_DEFINITION_SHAPE('','',#205);
#208=SHAPE_DEFINITION_REPRESENTATION(#207,#209);
#209=SHAPE_REPRESENTATION('Assembly',(#10,#218,#219),#11);
#218=AXIS2_PLACEMENT_3D('',#15,#16,#17);
#219=AXIS2_PLACEMENT_3D('',#300,#16,#301);
#300=CARTESIAN_POINT('',(20.,0.,0.));
#301=DIRECTION('',(0.,1.,0.));
#310=NEXT_ASSEMBLY_USAGE_OCCURRENCE('1','Cube:1','',#205,#105,$);
#311=PRODUCT_DEFINITION_SHAPE('','',#310);
#312=CONTEXT_DEPENDENT_SHAPE_REPRESENTATION(#313,#311);
#313=(REPRESENTATION_RELATIONSHIP('','',#109,#209) REPRESENTATION_RELATIONSHIP_WITH_TRANSFORMATION(#314) SHAPE_REPRESENTATION_RELATIONSHIP());
#314=ITEM_DEFINED_TRANSFORMATION('','',#110,#218);
#320=NEXT_ASSEMBLY_USAGE_OCCURRENCE('2','Cube:2','',#205,#105,$);
#321=PRODUCT_DEFINITION_SHAPE('','',#320);
#322=CONTEXT_DEPENDENT_SHAPE_REPRESENTATION(#323,#321);
#323=(REPRESENTATION_RELATIONSHIP('','',#109,#209) REPRESENTATION_RELATIONSHIP_WITH_TRANSFORMATION(#324) SHAPE_REPRESENTATION_RELATIONSHIP());
#324=ITEM_DEFINED_TRANSFORMATION('','',#110,#219);
` + stepFooter

// Cylinder is a part "Cylinder": an advanced B-rep cylinder of radius 5 and height 10
// standing on the XY plane, made of two planar disks and one cylindrical face.
const Cylinder = stepHeader + mmContext + axes + `#20=MANIFOLD_SOLID_BREP('cylinder',#21);
#21=CLOSED_SHELL('',(#32,#33,#34));
#32=ADVANCED_FACE('',(#40),#41,.F.);
#40=FACE_OUTER_BOUND('',#42,.T.);
#41=PLANE('',#10);
#42=EDGE_LOOP('',(#43));
#43=ORIENTED_EDGE('',*,*,#44,.T.);
#44=EDGE_CURVE('',#45,#45,#46,.T.);
#45=VERTEX_POINT('',#47);
#46=CIRCLE('',#10,5.);
#47=CARTESIAN_POINT('',(5.,0.,0.));
#33=ADVANCED_FACE('',(#50),#51,.T.);
#50=FACE_OUTER_BOUND('',#52,.T.);
#51=PLANE('',#58);
#52=EDGE_LOOP('',(#53));
#53=ORIENTED_EDGE('',*,*,#54,.T.);
#54=EDGE_CURVE('',#55,#55,#56,.T.);
#55=VERTEX_POINT('',#57);
#56=CIRCLE('',#58,5.);
#57=CARTESIAN_POINT('',(5.,0.,10.));
#58=AXIS2_PLACEMENT_3D('',#59,#16,#17);
#59=CARTESIAN_POINT('',(0.,0.,10.));
#34=ADVANCED_FACE('',(#60),#61,.T.);
#60=FACE_OUTER_BOUND('',#62,.T.);
#61=CYLINDRICAL_SURFACE('',#10,5.);
#62=EDGE_LOOP('',(#63,#64,#65,#66));
#63=ORIENTED_EDGE('',*,*,#44,.T.);
#64=ORIENTED_EDGE('',*,*,#67,.T.);
#65=ORIENTED_EDGE('',*,*,#54,.F.);
#66=ORIENTED_EDGE('',*,*,#67,.F.);
#67=EDGE_CURVE('',#45,#55,#68,.T.);
#68=LINE('',#47,#69);
#69=VECTOR('',#16,1.);
#1=APPLICATION_CONTEXT('automotive design');
#2=PRODUCT_CONTEXT('',#1,'mechanical');
#6=PRODUCT_DEFINITION_CONTEXT('part definition',#1,'design');
#101=PRODUCT('cyl','Cylinder','',(#2));
#104=PRODUCT_DEFINITION_FORMATION('','',#101);
#105=PRODUCT_DEFINITION('design','',#104,#6);
#107=PRODUCT_DEFINITION_SHAPE('','',#105);
#108=SHAPE_DEFINITION_REPRESENTATION(#107,#109);
#109=SHAPE_REPRESENTATION('Cylinder',(#10,#20),#11);
` + stepFooter

// LooseSolids has no product structure: two solids, one labelled and one not.
const LooseSolids = stepHeader + mmContext + axes + cubeBrep + `#80=FACETED_BREP('',#21);
` + stepFooter

// Unsupported is a part "Swept" whose only face lies on a surface the native kernel
// cannot mesh.
const Unsupported = stepHeader + mmContext + axes + `#20=MANIFOLD_SOLID_BREP('swept',#21);
#21=CLOSED_SHELL('',(#30));
#30=ADVANCED_FACE('',(),#31,.T.);
#31=SURFACE_OF_LINEAR_EXTRUSION('',#32,#33);
#32=LINE('',#15,#33);
#33=VECTOR('',#16,1.);
#1=APPLICATION_CONTEXT('automotive design');
#2=PRODUCT_CONTEXT('',#1,'mechanical');
#6=PRODUCT_DEFINITION_CONTEXT('part definition',#1,'design');
#101=PRODUCT('swept','Swept','',(#2));
#104=PRODUCT_DEFINITION_FORMATION('','',#101);
#105=PRODUCT_DEFINITION('design','',#104,#6);
#107=PRODUCT_DEFINITION_SHAPE('','',#105);
#108=SHAPE_DEFINITION_REPRESENTATION(#107,#109);
#109=SHAPE_REPRESENTATION('Swept',(#10,#20),#11);
` + stepFooter

// Empty is a well-formed file without any geometry.
const Empty = stepHeader + stepFooter
